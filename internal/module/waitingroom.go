// SPDX-License-Identifier: MIT

package module

import (
	"context"
	"errors"
	"sync"

	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/waitingroom"
)

// WaitingRoom runs the waiting-room controller's poll loop and deactivates
// all rooms when disabled.
type WaitingRoom struct {
	ctrl *waitingroom.Controller

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWaitingRoom creates the waiting-room module.
func NewWaitingRoom(ctrl *waitingroom.Controller) *WaitingRoom {
	return &WaitingRoom{ctrl: ctrl}
}

func (m *WaitingRoom) Name() string { return "waitingroom" }

func (m *WaitingRoom) Load(ctx context.Context) error {
	if !m.ctrl.Configured() {
		logger := log.WithComponent("module")
		logger.Warn().Msg("no waiting room channel configured, commands will be refused")
	}
	return nil
}

// Enable starts the controller's poll and event loop.
func (m *WaitingRoom) Enable(ctx context.Context) error {
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
		if err := m.ctrl.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger := log.WithComponent("module")
			logger.Error().Err(err).Msg("waiting room controller stopped unexpectedly")
		}
	}()
	return nil
}

// Disable stops the loop and deactivates every engaged room.
func (m *WaitingRoom) Disable(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	m.ctrl.Shutdown(ctx)
	return nil
}

var _ Module = (*WaitingRoom)(nil)
