// SPDX-License-Identifier: MIT

// Package api serves the daemon's operational HTTP surface: probes and a
// read-only view of sessions and waiting rooms. Playback is driven through
// the chat gateway, not this API.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quartel/warteraum/internal/commands"
	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/health"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/player"
	"github.com/quartel/warteraum/internal/waitingroom"
)

// SessionView is the wire form of one tenant session.
type SessionView struct {
	Tenant       gateway.TenantID `json:"tenant"`
	Volume       int              `json:"volume"`
	Playing      bool             `json:"playing"`
	Track        *TrackView       `json:"track,omitempty"`
	QueueLength  int              `json:"queueLength"`
	Repeating    bool             `json:"repeating"`
	LastActivity time.Time        `json:"lastActivity"`
}

// TrackView is the wire form of one track.
type TrackView struct {
	Title    string `json:"title"`
	URI      string `json:"uri"`
	Duration string `json:"duration"`
	Position string `json:"position,omitempty"`
}

// SessionDetail extends SessionView with the queued tracks.
type SessionDetail struct {
	SessionView
	Queue []TrackView `json:"queue"`
}

// Server holds the API's dependencies.
type Server struct {
	registry *player.Registry
	waiting  *waitingroom.Controller
	health   *health.Manager
	lib      commands.Library
	handler  *commands.Handler
}

// NewServer creates the API server.
func NewServer(registry *player.Registry, waiting *waitingroom.Controller, healthMgr *health.Manager, lib commands.Library, handler *commands.Handler) *Server {
	return &Server{registry: registry, waiting: waiting, health: healthMgr, lib: lib, handler: handler}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(RateLimit(120, time.Minute))

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", s.handleSessions)
		r.Get("/waitingrooms", s.handleWaitingRooms)
		r.Get("/playlists", s.handlePlaylists)

		r.Route("/sessions/{tenant}", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Post("/play", s.handlePlay)
			r.Post("/playlist", s.handlePlayPlaylist)
			r.Post("/skip", s.handleSkip)
			r.Post("/stop", s.handleStop)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Put("/volume", s.handleVolume)
		})
		r.Route("/waitingrooms/{tenant}", func(r chi.Router) {
			r.Post("/activate", s.handleWaitingRoomActivate)
			r.Delete("/", s.handleWaitingRoomDeactivate)
		})
	})
	return r
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.Sessions()
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, sessionView(sess))
	}
	writeJSON(w, r, http.StatusOK, views)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "tenant")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid tenant id"})
		return
	}

	tenant := gateway.TenantID(id)
	found := false
	for _, sess := range s.registry.Sessions() {
		if sess.Tenant == tenant {
			found = true
			break
		}
	}
	if !found {
		writeJSON(w, r, http.StatusNotFound, map[string]string{"error": "no session for tenant"})
		return
	}

	sess := s.registry.Session(tenant)
	detail := SessionDetail{SessionView: sessionView(sess)}
	for _, t := range sess.Scheduler.Snapshot() {
		detail.Queue = append(detail.Queue, trackView(t, 0))
	}
	writeJSON(w, r, http.StatusOK, detail)
}

func (s *Server) handleWaitingRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.waiting.Status())
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.lib.Names())
}

func sessionView(sess *player.Session) SessionView {
	view := SessionView{
		Tenant:       sess.Tenant,
		Volume:       sess.Volume(),
		QueueLength:  sess.Scheduler.QueueLen(),
		Repeating:    sess.Scheduler.Repeating(),
		LastActivity: sess.LastActivity(),
	}
	if current, ok := sess.Player.Current(); ok {
		view.Playing = true
		tv := trackView(current, sess.Player.Position())
		view.Track = &tv
	}
	return view
}

func trackView(t engine.Track, position time.Duration) TrackView {
	view := TrackView{
		Title:    t.Title,
		URI:      t.URI,
		Duration: commands.FormatDuration(t.Duration),
	}
	if position > 0 {
		view.Position = commands.FormatDuration(position)
	}
	return view
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("failed to encode response")
	}
}
