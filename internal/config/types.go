// SPDX-License-Identifier: MIT

// Package config loads daemon configuration with ENV > file > defaults precedence.
package config

import "time"

// Config is the fully resolved daemon configuration.
type Config struct {
	// Logging
	LogLevel   string
	LogService string

	// Servers
	ListenAddr     string
	MetricsEnabled bool
	MetricsAddr    string

	// Chat gateway. An empty token keeps the daemon in standalone mode
	// with in-memory adapters.
	GatewayToken string

	// Music library
	DataDir string

	// Music playback
	DefaultVolume          int
	DisconnectTimeout      time.Duration
	SweepInterval          time.Duration
	DisconnectWhilePlaying bool

	// Waiting room
	WaitingRoomChannelID uint64
	DefaultPlaylist      string
	PollInterval         time.Duration
	AutoLeaveTimeout     time.Duration
	JoinSettleDelay      time.Duration
}

// Defaults returns the built-in configuration defaults.
func Defaults() Config {
	return Config{
		LogLevel:   "info",
		LogService: "warteraum",

		ListenAddr:     ":8080",
		MetricsEnabled: true,
		MetricsAddr:    ":9090",

		DataDir: "music_library",

		DefaultVolume:          50,
		DisconnectTimeout:      60 * time.Second,
		SweepInterval:          60 * time.Second,
		DisconnectWhilePlaying: true,

		DefaultPlaylist:  "chill",
		PollInterval:     15 * time.Second,
		AutoLeaveTimeout: 60 * time.Second,
		JoinSettleDelay:  time.Second,
	}
}
