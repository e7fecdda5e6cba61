// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout of config.yaml. All fields are pointers
// so that absent keys can be distinguished from zero values during merging.
type fileConfig struct {
	Log struct {
		Level   *string `yaml:"level"`
		Service *string `yaml:"service"`
	} `yaml:"log"`
	API struct {
		ListenAddr *string `yaml:"listenAddr"`
	} `yaml:"api"`
	Gateway struct {
		Token *string `yaml:"token"`
	} `yaml:"gateway"`
	Metrics struct {
		Enabled *bool   `yaml:"enabled"`
		Addr    *string `yaml:"addr"`
	} `yaml:"metrics"`
	Music struct {
		DataDir                *string `yaml:"dataDir"`
		DefaultVolume          *int    `yaml:"defaultVolume"`
		DisconnectTimeout      *string `yaml:"disconnectTimeout"`
		SweepInterval          *string `yaml:"sweepInterval"`
		DisconnectWhilePlaying *bool   `yaml:"disconnectWhilePlaying"`
	} `yaml:"music"`
	Warteraum struct {
		ChannelID        *uint64 `yaml:"channelId"`
		DefaultPlaylist  *string `yaml:"defaultPlaylist"`
		PollInterval     *string `yaml:"pollInterval"`
		AutoLeaveTimeout *string `yaml:"autoLeaveTimeout"`
		JoinSettleDelay  *string `yaml:"joinSettleDelay"`
	} `yaml:"warteraum"`
}

// readFile parses the YAML config at path. A missing file is not an error;
// it returns a zero fileConfig so that env and defaults still apply.
func readFile(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file behaves like a missing file.
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return &fc, nil
}
