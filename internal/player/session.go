// SPDX-License-Identifier: MIT

package player

import (
	"sync"
	"time"

	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
)

// Session bundles the playback state of one tenant: the player, its
// scheduler and the activity clock the idle sweeper reads.
type Session struct {
	Tenant    gateway.TenantID
	Player    engine.Player
	Scheduler *Scheduler

	mu           sync.Mutex
	lastActivity time.Time

	disconnectTimeout      time.Duration
	disconnectWhilePlaying bool
	now                    func() time.Time
}

// SetVolume sets the playback volume, clamped into [0,100].
func (s *Session) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.Player.SetVolume(v)
}

// Volume reports the current playback volume.
func (s *Session) Volume() int {
	return s.Player.Volume()
}

// TouchActivity marks the session as active now. Every user-visible
// operation on the session calls this.
func (s *Session) TouchActivity() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// LastActivity reports when the session was last touched.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// ShouldDisconnect decides whether the idle sweeper may close this
// tenant's voice connection, given the number of humans in the connected
// channel. A zero timeout disables idle disconnects entirely.
func (s *Session) ShouldDisconnect(humans int) bool {
	if s.disconnectTimeout <= 0 {
		return false
	}
	if humans > 0 {
		return false
	}
	if !s.disconnectWhilePlaying {
		if _, playing := s.Player.Current(); playing {
			return false
		}
	}
	return s.now().Sub(s.LastActivity()) >= s.disconnectTimeout
}
