// SPDX-License-Identifier: MIT

package module

import (
	"context"
	"errors"
	"sync"

	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/player"
)

// Music runs the playback core: it owns the idle sweeper and tears down
// every open voice connection when disabled.
type Music struct {
	registry *player.Registry
	sweeper  *player.Sweeper
	gw       gateway.Client

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMusic creates the music module.
func NewMusic(registry *player.Registry, sweeper *player.Sweeper, gw gateway.Client) *Music {
	return &Music{registry: registry, sweeper: sweeper, gw: gw}
}

func (m *Music) Name() string { return "music" }

func (m *Music) Load(ctx context.Context) error { return nil }

// Enable starts the idle sweeper.
func (m *Music) Enable(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		if err := m.sweeper.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger := log.WithComponent("module")
			logger.Error().Err(err).Msg("sweeper stopped unexpectedly")
		}
	}()
	return nil
}

// Disable stops the sweeper, halts playback and closes all open
// connections.
func (m *Music) Disable(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	var errs []error
	for _, sess := range m.registry.Sessions() {
		sess.Scheduler.SetRepeating(false)
		sess.Scheduler.Clear()
		if _, ok := m.gw.ConnectedChannel(sess.Tenant); ok {
			if err := m.gw.CloseConnection(ctx, sess.Tenant); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var _ Module = (*Music)(nil)
