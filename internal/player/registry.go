// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quartel/warteraum/internal/config"
	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/metrics"
)

// OutcomeKind tags the variants of a load-and-play outcome.
type OutcomeKind int

const (
	// OutcomeNowPlaying means the resolved track started immediately.
	OutcomeNowPlaying OutcomeKind = iota
	// OutcomeQueued means the resolved track was appended to the queue.
	OutcomeQueued
	// OutcomePlaylistQueued means a playlist was enqueued in source order.
	OutcomePlaylistQueued
	// OutcomeNoMatches means the engine found nothing for the locator.
	OutcomeNoMatches
	// OutcomeFailed means resolution failed; Err carries the reason.
	OutcomeFailed
)

// LoadOutcome is the result of one LoadAndPlay request.
type LoadOutcome struct {
	Kind  OutcomeKind
	Track engine.Track
	Name  string
	Count int
	Err   error
}

// Registry is the thread-safe home of all tenant sessions. Sessions are
// created on first use and live for the lifetime of the process.
type Registry struct {
	mu       sync.Mutex
	sessions map[gateway.TenantID]*Session

	eng    engine.Engine
	cfg    config.Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewRegistry creates an empty registry backed by the given engine.
func NewRegistry(eng engine.Engine, cfg config.Config) *Registry {
	return &Registry{
		sessions: make(map[gateway.TenantID]*Session),
		eng:      eng,
		cfg:      cfg,
		now:      time.Now,
		logger:   log.WithComponent("registry"),
	}
}

// Session returns the tenant's session, creating it on first use.
func (r *Registry) Session(tenant gateway.TenantID) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[tenant]; ok {
		return sess
	}

	p := r.eng.NewPlayer()
	sess := &Session{
		Tenant:                 tenant,
		Player:                 p,
		Scheduler:              NewScheduler(tenant, p),
		disconnectTimeout:      r.cfg.DisconnectTimeout,
		disconnectWhilePlaying: r.cfg.DisconnectWhilePlaying,
		now:                    r.now,
	}
	sess.SetVolume(r.cfg.DefaultVolume)
	sess.TouchActivity()
	r.sessions[tenant] = sess

	metrics.ActiveSessions.Inc()
	r.logger.Info().
		Str(log.FieldEvent, "registry.session_created").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Int(log.FieldVolume, r.cfg.DefaultVolume).
		Msg("created tenant session")
	return sess
}

// Sessions returns a snapshot of all live sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// LoadAndPlay resolves a locator and feeds the result into the tenant's
// scheduler. Exactly one outcome is delivered on the returned channel,
// which is then closed. The tenant's session is created if needed.
func (r *Registry) LoadAndPlay(ctx context.Context, tenant gateway.TenantID, locator string) <-chan LoadOutcome {
	out := make(chan LoadOutcome, 1)
	sess := r.Session(tenant)

	go func() {
		defer close(out)
		res, ok := <-r.eng.Resolve(ctx, locator)
		if !ok {
			metrics.RecordLoadOutcome("failed")
			out <- LoadOutcome{Kind: OutcomeFailed, Err: ctx.Err()}
			return
		}
		out <- r.apply(sess, locator, res)
	}()
	return out
}

func (r *Registry) apply(sess *Session, locator string, res engine.LoadResult) LoadOutcome {
	logger := r.logger.With().
		Uint64(log.FieldTenantID, uint64(sess.Tenant)).
		Str(log.FieldURI, locator).Logger()

	switch res.Kind {
	case engine.LoadTrack:
		return r.applyTrack(sess, logger, res.Track)

	case engine.LoadPlaylist:
		if res.Search {
			// A search yields a pseudo playlist of hits; only the best
			// match is played.
			if len(res.Tracks) == 0 {
				metrics.RecordLoadOutcome("no_match")
				return LoadOutcome{Kind: OutcomeNoMatches}
			}
			return r.applyTrack(sess, logger, res.Tracks[0])
		}

		metrics.RecordLoadOutcome("playlist")
		sess.TouchActivity()
		for _, t := range res.Tracks {
			sess.Scheduler.Enqueue(t)
		}
		logger.Info().
			Str(log.FieldEvent, "registry.playlist_queued").
			Str(log.FieldPlaylist, res.Name).
			Int("tracks", len(res.Tracks)).
			Msg("queued playlist")
		return LoadOutcome{Kind: OutcomePlaylistQueued, Name: res.Name, Count: len(res.Tracks)}

	case engine.LoadNoMatch:
		metrics.RecordLoadOutcome("no_match")
		logger.Debug().Str(log.FieldEvent, "registry.no_match").Msg("nothing found")
		return LoadOutcome{Kind: OutcomeNoMatches}

	default:
		metrics.RecordLoadOutcome("failed")
		logger.Error().Err(res.Err).Str(log.FieldEvent, "registry.load_failed").Msg("resolution failed")
		return LoadOutcome{Kind: OutcomeFailed, Err: res.Err}
	}
}

func (r *Registry) applyTrack(sess *Session, logger zerolog.Logger, t engine.Track) LoadOutcome {
	metrics.RecordLoadOutcome("track")
	sess.TouchActivity()
	if sess.Scheduler.Enqueue(t) {
		logger.Info().
			Str(log.FieldEvent, "registry.now_playing").
			Str(log.FieldTrack, t.Title).
			Msg("started track")
		return LoadOutcome{Kind: OutcomeNowPlaying, Track: t}
	}
	logger.Info().
		Str(log.FieldEvent, "registry.queued").
		Str(log.FieldTrack, t.Title).
		Msg("queued track")
	return LoadOutcome{Kind: OutcomeQueued, Track: t}
}
