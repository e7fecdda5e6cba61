// SPDX-License-Identifier: MIT

// Package player implements the per-tenant playback core: the track
// scheduler, the tenant session, the session registry and the idle
// sweeper.
package player

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/metrics"
)

// Scheduler owns the FIFO track queue of one tenant and reacts to the
// player's playback events. It registers itself as the player's listener;
// all public methods are safe for concurrent use.
//
// Playback events may be emitted synchronously from within Start and Stop
// calls, so the scheduler never holds its mutex across a player call.
type Scheduler struct {
	mu        sync.Mutex
	player    engine.Player
	queue     []engine.Track
	repeating bool
	logger    zerolog.Logger
}

// NewScheduler creates a scheduler bound to the given player and registers
// it for playback events.
func NewScheduler(tenant gateway.TenantID, p engine.Player) *Scheduler {
	s := &Scheduler{
		player: p,
		logger: log.WithComponent("scheduler").With().
			Uint64(log.FieldTenantID, uint64(tenant)).Logger(),
	}
	p.AddListener(s)
	return s
}

// Enqueue plays the track immediately if the player is idle, otherwise
// appends it to the queue. It reports whether playback started.
func (s *Scheduler) Enqueue(t engine.Track) bool {
	// noInterrupt start: a playing track is never replaced, and the
	// idle-or-queue decision stays atomic inside the player.
	if s.player.Start(t, true) {
		metrics.RecordTrackStarted("command")
		s.logger.Debug().
			Str(log.FieldEvent, "scheduler.play_now").
			Str(log.FieldTrack, t.Title).
			Msg("started track on idle player")
		return true
	}

	s.mu.Lock()
	s.queue = append(s.queue, t)
	depth := len(s.queue)
	s.mu.Unlock()

	s.logger.Debug().
		Str(log.FieldEvent, "scheduler.enqueued").
		Str(log.FieldTrack, t.Title).
		Int("queue_depth", depth).
		Msg("queued track")
	return false
}

// Advance starts the next queued track, replacing whatever is playing.
// With an empty queue it stops the player if forceStop is set and leaves
// the current track alone otherwise.
func (s *Scheduler) Advance(forceStop bool) {
	next, ok := s.pop()
	if !ok {
		if forceStop {
			s.player.Stop()
		}
		return
	}
	metrics.RecordTrackStarted("queue")
	s.player.Start(next, false)
}

// Clear drops all queued tracks and stops the current one. The queue is
// emptied first so the stop event cannot start a successor.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	s.player.Stop()

	if dropped > 0 {
		s.logger.Debug().
			Str(log.FieldEvent, "scheduler.cleared").
			Int("dropped", dropped).
			Msg("cleared queue and stopped playback")
	}
}

// SetRepeating toggles repeat mode for the current track.
func (s *Scheduler) SetRepeating(repeating bool) {
	s.mu.Lock()
	s.repeating = repeating
	s.mu.Unlock()
}

// Repeating reports whether repeat mode is on.
func (s *Scheduler) Repeating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeating
}

// Snapshot returns a copy of the queued tracks in play order.
func (s *Scheduler) Snapshot() []engine.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Track, len(s.queue))
	copy(out, s.queue)
	return out
}

// QueueLen reports the number of queued tracks.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) pop() (engine.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return engine.Track{}, false
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, true
}

// TrackEnded implements engine.Listener. Manual stops and replacements
// arrive with mayStartNext=false and must return before any locking: the
// player emits them synchronously from inside Start and Stop.
func (s *Scheduler) TrackEnded(t engine.Track, mayStartNext bool) {
	if !mayStartNext {
		return
	}

	if s.Repeating() {
		metrics.RecordTrackStarted("repeat")
		// A finished track holds a consumed playback position; only a
		// clone is playable again.
		s.player.Start(t.Clone(), false)
		return
	}
	s.Advance(false)
}

// TrackStuck implements engine.Listener. A stuck track is abandoned in
// favour of the next queued one.
func (s *Scheduler) TrackStuck(t engine.Track, threshold time.Duration) {
	metrics.RecordPlaybackFault("stuck")
	s.logger.Warn().
		Str(log.FieldEvent, "scheduler.track_stuck").
		Str(log.FieldTrack, t.Title).
		Dur("threshold", threshold).
		Msg("track made no progress, advancing")
	s.Advance(true)
}

// TrackException implements engine.Listener. The fault is recorded but the
// track is not retried; the engine decides whether playback continues.
func (s *Scheduler) TrackException(t engine.Track, err error) {
	metrics.RecordPlaybackFault("exception")
	s.logger.Error().Err(err).
		Str(log.FieldEvent, "scheduler.track_exception").
		Str(log.FieldTrack, t.Title).
		Msg("playback fault")
}

var _ engine.Listener = (*Scheduler)(nil)
