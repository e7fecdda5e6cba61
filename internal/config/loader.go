// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"time"
)

// Loader resolves configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load resolves and validates the full configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	fc, err := readFile(l.configPath)
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fc)
	mergeEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func mergeFile(cfg *Config, fc *fileConfig) {
	setString(&cfg.LogLevel, fc.Log.Level)
	setString(&cfg.LogService, fc.Log.Service)
	setString(&cfg.ListenAddr, fc.API.ListenAddr)
	setString(&cfg.GatewayToken, fc.Gateway.Token)
	setBool(&cfg.MetricsEnabled, fc.Metrics.Enabled)
	setString(&cfg.MetricsAddr, fc.Metrics.Addr)
	setString(&cfg.DataDir, fc.Music.DataDir)
	setInt(&cfg.DefaultVolume, fc.Music.DefaultVolume)
	setDuration(&cfg.DisconnectTimeout, fc.Music.DisconnectTimeout)
	setDuration(&cfg.SweepInterval, fc.Music.SweepInterval)
	setBool(&cfg.DisconnectWhilePlaying, fc.Music.DisconnectWhilePlaying)
	if fc.Warteraum.ChannelID != nil {
		cfg.WaitingRoomChannelID = *fc.Warteraum.ChannelID
	}
	setString(&cfg.DefaultPlaylist, fc.Warteraum.DefaultPlaylist)
	setDuration(&cfg.PollInterval, fc.Warteraum.PollInterval)
	setDuration(&cfg.AutoLeaveTimeout, fc.Warteraum.AutoLeaveTimeout)
	setDuration(&cfg.JoinSettleDelay, fc.Warteraum.JoinSettleDelay)
}

func mergeEnv(cfg *Config) {
	cfg.LogLevel = ParseString("WR_LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("WR_LOG_SERVICE", cfg.LogService)
	cfg.ListenAddr = ParseString("WR_LISTEN", cfg.ListenAddr)
	cfg.GatewayToken = ParseString("WR_GATEWAY_TOKEN", cfg.GatewayToken)
	cfg.MetricsEnabled = ParseBool("WR_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = ParseString("WR_METRICS_ADDR", cfg.MetricsAddr)
	cfg.DataDir = ParseString("WR_DATA", cfg.DataDir)
	cfg.DefaultVolume = ParseInt("WR_MUSIC_VOLUME_DEFAULT", cfg.DefaultVolume)
	cfg.DisconnectTimeout = ParseDuration("WR_MUSIC_TIMEOUT", cfg.DisconnectTimeout)
	cfg.SweepInterval = ParseDuration("WR_MUSIC_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.DisconnectWhilePlaying = ParseBool("WR_MUSIC_DISCONNECT_WHILE_PLAYING", cfg.DisconnectWhilePlaying)
	cfg.WaitingRoomChannelID = ParseUint64("WR_WARTERAUM_CHANNEL_ID", cfg.WaitingRoomChannelID)
	cfg.DefaultPlaylist = ParseString("WR_WARTERAUM_DEFAULT_PLAYLIST", cfg.DefaultPlaylist)
	cfg.PollInterval = ParseDuration("WR_WARTERAUM_POLL_INTERVAL", cfg.PollInterval)
	cfg.AutoLeaveTimeout = ParseDuration("WR_WARTERAUM_AUTO_LEAVE_TIMEOUT", cfg.AutoLeaveTimeout)
	cfg.JoinSettleDelay = ParseDuration("WR_WARTERAUM_JOIN_SETTLE_DELAY", cfg.JoinSettleDelay)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) {
	if src == nil {
		return
	}
	if d, err := time.ParseDuration(*src); err == nil {
		*dst = d
	}
}
