// SPDX-License-Identifier: MIT

// Package module defines the bot's feature-module lifecycle. Modules are
// composed into an explicit list; the daemon loads and enables them in
// order and disables them in reverse on shutdown.
package module

import (
	"context"
	"errors"
	"fmt"

	"github.com/quartel/warteraum/internal/log"
)

// Module is one self-contained feature of the bot.
type Module interface {
	// Name identifies the module in logs.
	Name() string

	// Load prepares the module's resources. No background work starts yet.
	Load(ctx context.Context) error

	// Enable starts the module's background work.
	Enable(ctx context.Context) error

	// Disable stops the module and releases its resources.
	Disable(ctx context.Context) error
}

// List is an ordered set of modules.
type List []Module

// LoadAll loads every module in order, stopping at the first failure.
func (l List) LoadAll(ctx context.Context) error {
	logger := log.WithComponent("module")
	for _, m := range l {
		if err := m.Load(ctx); err != nil {
			return fmt.Errorf("load module %s: %w", m.Name(), err)
		}
		logger.Debug().Str("module", m.Name()).Msg("module loaded")
	}
	return nil
}

// EnableAll enables every module in order, stopping at the first failure.
func (l List) EnableAll(ctx context.Context) error {
	logger := log.WithComponent("module")
	for _, m := range l {
		if err := m.Enable(ctx); err != nil {
			return fmt.Errorf("enable module %s: %w", m.Name(), err)
		}
		logger.Info().Str("module", m.Name()).Msg("module enabled")
	}
	return nil
}

// DisableAll disables the modules in reverse order. Every module is
// attempted; failures are joined.
func (l List) DisableAll(ctx context.Context) error {
	logger := log.WithComponent("module")
	var errs []error
	for i := len(l) - 1; i >= 0; i-- {
		m := l[i]
		if err := m.Disable(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disable module %s: %w", m.Name(), err))
			continue
		}
		logger.Info().Str("module", m.Name()).Msg("module disabled")
	}
	return errors.Join(errs...)
}
