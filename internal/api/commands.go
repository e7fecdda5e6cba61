// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quartel/warteraum/internal/commands"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/library"
	"github.com/quartel/warteraum/internal/player"
	"github.com/quartel/warteraum/internal/waitingroom"
)

// playRequest asks for a track or search load into a tenant session.
type playRequest struct {
	Locator string `json:"locator"`
	Channel uint64 `json:"channel"`
}

// playlistRequest asks for a named library playlist to be queued.
type playlistRequest struct {
	Name    string `json:"name"`
	Channel uint64 `json:"channel"`
}

type volumeRequest struct {
	Volume int `json:"volume"`
}

type activateRequest struct {
	Playlist string `json:"playlist"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var req playRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Locator == "" {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "locator is required"})
		return
	}

	outcome, err := s.handler.Play(r.Context(), tenant, gateway.ChannelRef(req.Channel), req.Locator)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, outcomeView(outcome))
}

func (s *Server) handlePlayPlaylist(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var req playlistRequest
	if !decodeBody(w, r, &req) {
		return
	}

	queued, err := s.handler.PlayPlaylist(r.Context(), tenant, gateway.ChannelRef(req.Channel), req.Name)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"queued": queued})
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	next, playing, err := s.handler.Skip(r.Context(), tenant)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	resp := map[string]any{"playing": playing}
	if playing {
		tv := trackView(next, 0)
		resp["track"] = tv
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	if err := s.handler.Stop(r.Context(), tenant); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, true)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, false)
}

func (s *Server) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var err error
	if paused {
		err = s.handler.Pause(r.Context(), tenant)
	} else {
		err = s.handler.Resume(r.Context(), tenant)
	}
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var req volumeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := s.handler.SetVolume(r.Context(), tenant, req.Volume)
	if err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"volume": v})
}

func (s *Server) handleWaitingRoomActivate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	var req activateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.handler.WaitingRoomActivate(r.Context(), tenant, req.Playlist); err != nil {
		writeCommandError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{
		"state": s.handler.WaitingRoomState(tenant).String(),
	})
}

func (s *Server) handleWaitingRoomDeactivate(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantParam(w, r)
	if !ok {
		return
	}
	if err := s.handler.WaitingRoomDeactivate(r.Context(), tenant); err != nil {
		writeCommandError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tenantParam(w http.ResponseWriter, r *http.Request) (gateway.TenantID, bool) {
	raw := chi.URLParam(r, "tenant")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid tenant id"})
		return 0, false
	}
	return gateway.TenantID(id), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, r, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func outcomeView(o player.LoadOutcome) map[string]any {
	view := map[string]any{}
	switch o.Kind {
	case player.OutcomeNowPlaying:
		view["result"] = "playing"
		tv := trackView(o.Track, 0)
		view["track"] = tv
	case player.OutcomeQueued:
		view["result"] = "queued"
		tv := trackView(o.Track, 0)
		view["track"] = tv
	case player.OutcomePlaylistQueued:
		view["result"] = "playlist_queued"
		view["name"] = o.Name
		view["count"] = o.Count
	case player.OutcomeNoMatches:
		view["result"] = "no_matches"
	case player.OutcomeFailed:
		view["result"] = "failed"
		if o.Err != nil {
			view["error"] = o.Err.Error()
		}
	}
	return view
}

func writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, commands.ErrWaitingRoomActive),
		errors.Is(err, commands.ErrNothingPlaying),
		errors.Is(err, waitingroom.ErrNotConfigured):
		status = http.StatusConflict
	case errors.Is(err, commands.ErrVolumeOutOfRange),
		errors.Is(err, commands.ErrEmptyPlaylist),
		errors.Is(err, waitingroom.ErrEmptyPlaylist),
		errors.Is(err, library.ErrUnknownPlaylist):
		status = http.StatusBadRequest
	}
	writeJSON(w, r, status, map[string]string{"error": err.Error()})
}
