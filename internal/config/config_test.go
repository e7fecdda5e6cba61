// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.DefaultVolume)
	assert.Equal(t, 60*time.Second, cfg.DisconnectTimeout)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.Equal(t, "chill", cfg.DefaultPlaylist)
	assert.True(t, cfg.DisconnectWhilePlaying)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().ListenAddr, cfg.ListenAddr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
music:
  defaultVolume: 75
  disconnectTimeout: 2m
warteraum:
  channelId: 424242
  defaultPlaylist: energetic
  pollInterval: 5s
`), 0o600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 75, cfg.DefaultVolume)
	assert.Equal(t, 2*time.Minute, cfg.DisconnectTimeout)
	assert.Equal(t, uint64(424242), cfg.WaitingRoomChannelID)
	assert.Equal(t, "energetic", cfg.DefaultPlaylist)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
music:
  defaultVolume: 75
`), 0o600))

	t.Setenv("WR_MUSIC_VOLUME_DEFAULT", "30")
	t.Setenv("WR_MUSIC_TIMEOUT", "90")
	t.Setenv("WR_GATEWAY_TOKEN", "s3cret")

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.DefaultVolume)
	assert.Equal(t, 90*time.Second, cfg.DisconnectTimeout, "bare numbers are seconds")
	assert.Equal(t, "s3cret", cfg.GatewayToken)
}

func TestParseEnv_InvalidValuesFallBackToDefault(t *testing.T) {
	t.Setenv("WR_TEST_INT", "not-a-number")
	assert.Equal(t, 42, ParseInt("WR_TEST_INT", 42))

	t.Setenv("WR_TEST_UINT", "-5")
	assert.Equal(t, uint64(7), ParseUint64("WR_TEST_UINT", 7))

	t.Setenv("WR_TEST_BOOL", "maybe")
	assert.Equal(t, true, ParseBool("WR_TEST_BOOL", true))

	t.Setenv("WR_TEST_DUR", "soon")
	assert.Equal(t, time.Minute, ParseDuration("WR_TEST_DUR", time.Minute))
}

func TestLoad_UnknownFileKeyFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bogus: true\n"), 0o600))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestParseDuration_Forms(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"go duration", "45s", 45 * time.Second},
		{"bare seconds", "45", 45 * time.Second},
		{"minutes", "2m", 2 * time.Minute},
		{"invalid falls back", "soon", 7 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WR_TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, ParseDuration("WR_TEST_DURATION", 7*time.Second))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"volume too high", func(c *Config) { c.DefaultVolume = 101 }, true},
		{"volume negative", func(c *Config) { c.DefaultVolume = -1 }, true},
		{"zero timeout disables sweep", func(c *Config) { c.DisconnectTimeout = 0 }, false},
		{"negative timeout", func(c *Config) { c.DisconnectTimeout = -time.Second }, true},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, true},
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }, true},
		{"metrics enabled without addr", func(c *Config) { c.MetricsAddr = "" }, true},
		{"metrics disabled without addr", func(c *Config) { c.MetricsEnabled = false; c.MetricsAddr = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
