// SPDX-License-Identifier: MIT

// Package library manages the on-disk music library: a yaml manifest maps
// playlist names to directories holding the audio files. The manifest is
// watched for edits so playlist changes apply without a restart.
package library

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/quartel/warteraum/internal/log"
)

// ErrUnknownPlaylist means the manifest holds no playlist of that name.
var ErrUnknownPlaylist = errors.New("unknown playlist")

const manifestName = "library.yaml"

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
}

var defaultPlaylists = []PlaylistSpec{
	{Name: "chill", Path: "chill", Description: "Relaxing music collection"},
	{Name: "energetic", Path: "energetic", Description: "High-energy tracks"},
}

// PlaylistSpec is one manifest entry. Path is relative to the library root
// unless absolute.
type PlaylistSpec struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

type manifest struct {
	Playlists []PlaylistSpec `yaml:"playlists"`
}

// Manager serves playlist lookups from the library root. It is safe for
// concurrent use; the manifest cache is refreshed by the file watcher.
type Manager struct {
	root string

	mu        sync.RWMutex
	playlists map[string]PlaylistSpec

	watcher *fsnotify.Watcher
	done    chan struct{}
	logger  zerolog.Logger
}

// New opens the library at root, bootstrapping the default manifest and
// playlist directories on first run.
func New(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}

	m := &Manager{
		root:   root,
		done:   make(chan struct{}),
		logger: log.WithComponent("library"),
	}

	if err := m.reload(); err != nil {
		return nil, err
	}
	m.startWatcher()

	m.logger.Info().
		Str(log.FieldEvent, "library.opened").
		Str("root", root).
		Int("playlists", len(m.Names())).
		Msg("music library ready")
	return m, nil
}

// Names lists the known playlist names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.playlists))
	for name := range m.playlists {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Playlist returns the playlist's audio file paths, sorted. A known
// playlist whose directory vanished is recreated empty.
func (m *Manager) Playlist(name string) ([]string, error) {
	m.mu.RLock()
	spec, ok := m.playlists[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownPlaylist)
	}

	dir := m.resolve(spec.Path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		if mkErr := m.createPlaylistDir(spec); mkErr != nil {
			return nil, fmt.Errorf("playlist directory %q: %w", dir, mkErr)
		}
		m.logger.Warn().
			Str(log.FieldEvent, "library.dir_recreated").
			Str(log.FieldPlaylist, name).
			Str("dir", dir).
			Msg("playlist directory was missing, recreated empty")
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan playlist %q: %w", name, err)
	}
	sort.Strings(files)
	return files, nil
}

// Close stops the manifest watcher.
func (m *Manager) Close() error {
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Close()
	<-m.done
	return err
}

func (m *Manager) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.root, p)
}

func (m *Manager) manifestPath() string {
	return filepath.Join(m.root, manifestName)
}

// reload reads the manifest, writing the default one on first run.
func (m *Manager) reload() error {
	data, err := os.ReadFile(m.manifestPath())
	if errors.Is(err, fs.ErrNotExist) {
		if err := m.bootstrap(); err != nil {
			return err
		}
		data, err = os.ReadFile(m.manifestPath())
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	var mf manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	playlists := make(map[string]PlaylistSpec, len(mf.Playlists))
	for _, spec := range mf.Playlists {
		if spec.Name == "" || spec.Path == "" {
			return fmt.Errorf("manifest entry needs name and path: %+v", spec)
		}
		playlists[spec.Name] = spec
	}

	m.mu.Lock()
	m.playlists = playlists
	m.mu.Unlock()
	return nil
}

func (m *Manager) bootstrap() error {
	for _, spec := range defaultPlaylists {
		if err := m.createPlaylistDir(spec); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(manifest{Playlists: defaultPlaylists})
	if err != nil {
		return fmt.Errorf("marshal default manifest: %w", err)
	}
	if err := os.WriteFile(m.manifestPath(), data, 0o644); err != nil {
		return fmt.Errorf("write default manifest: %w", err)
	}

	m.logger.Info().
		Str(log.FieldEvent, "library.bootstrapped").
		Str("manifest", m.manifestPath()).
		Msg("created default music library")
	return nil
}

func (m *Manager) createPlaylistDir(spec PlaylistSpec) error {
	dir := m.resolve(spec.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create playlist directory: %w", err)
	}

	readme := filepath.Join(dir, "README.txt")
	if _, err := os.Stat(readme); errors.Is(err, fs.ErrNotExist) {
		content := fmt.Sprintf("Drop audio files for the %q playlist into this directory.\n"+
			"Supported formats: mp3, wav, flac.\n", spec.Name)
		if err := os.WriteFile(readme, []byte(content), 0o644); err != nil {
			m.logger.Warn().Err(err).
				Str(log.FieldPlaylist, spec.Name).
				Msg("could not write playlist README")
		}
	}
	return nil
}
