// SPDX-License-Identifier: MIT

package library

import (
	"github.com/fsnotify/fsnotify"

	"github.com/quartel/warteraum/internal/log"
)

// startWatcher watches the library root and reloads the manifest cache
// when library.yaml changes. A watcher failure degrades to restart-only
// manifest loading instead of failing the library.
func (m *Manager) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Warn().Err(err).
			Str(log.FieldEvent, "library.watch_unavailable").
			Msg("manifest watching disabled")
		close(m.done)
		return
	}
	if err := watcher.Add(m.root); err != nil {
		m.logger.Warn().Err(err).
			Str(log.FieldEvent, "library.watch_unavailable").
			Str("root", m.root).
			Msg("manifest watching disabled")
		_ = watcher.Close()
		close(m.done)
		return
	}

	m.watcher = watcher
	go m.watchLoop()
}

func (m *Manager) watchLoop() {
	defer close(m.done)
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != m.manifestPath() {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := m.reload(); err != nil {
				m.logger.Error().Err(err).
					Str(log.FieldEvent, "library.reload_failed").
					Msg("manifest changed but could not be reloaded")
				continue
			}
			m.logger.Info().
				Str(log.FieldEvent, "library.reloaded").
				Int("playlists", len(m.Names())).
				Msg("manifest reloaded")
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn().Err(err).
				Str(log.FieldEvent, "library.watch_error").
				Msg("watch error")
		}
	}
}
