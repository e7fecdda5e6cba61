// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
)

// Validate checks the resolved configuration for values the daemon cannot
// start with. Zero timeouts are legal (they disable the feature); negative
// values and out-of-range volumes are not.
func (c Config) Validate() error {
	var errs []error

	if c.DefaultVolume < 0 || c.DefaultVolume > 100 {
		errs = append(errs, fmt.Errorf("music.defaultVolume must be within [0,100], got %d", c.DefaultVolume))
	}
	if c.DisconnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("music.disconnectTimeout must not be negative, got %s", c.DisconnectTimeout))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("music.sweepInterval must be positive, got %s", c.SweepInterval))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("warteraum.pollInterval must be positive, got %s", c.PollInterval))
	}
	if c.AutoLeaveTimeout < 0 {
		errs = append(errs, fmt.Errorf("warteraum.autoLeaveTimeout must not be negative, got %s", c.AutoLeaveTimeout))
	}
	if c.JoinSettleDelay < 0 {
		errs = append(errs, fmt.Errorf("warteraum.joinSettleDelay must not be negative, got %s", c.JoinSettleDelay))
	}
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("api.listenAddr must not be empty"))
	}
	if c.MetricsEnabled && c.MetricsAddr == "" {
		errs = append(errs, errors.New("metrics.addr must not be empty when metrics are enabled"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("music.dataDir must not be empty"))
	}

	return errors.Join(errs...)
}
