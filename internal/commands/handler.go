// SPDX-License-Identifier: MIT

// Package commands implements the user-facing playback operations as a
// transport-agnostic handler. Chat frontends translate their interaction
// events into these calls and render the returned values.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/player"
	"github.com/quartel/warteraum/internal/waitingroom"
)

var (
	// ErrWaitingRoomActive means manual playback is locked out because the
	// tenant's waiting room is engaged.
	ErrWaitingRoomActive = errors.New("waiting room mode is active")

	// ErrNothingPlaying means the command needs a playing track.
	ErrNothingPlaying = errors.New("nothing is playing")

	// ErrEmptyPlaylist means the named playlist holds no audio files.
	ErrEmptyPlaylist = errors.New("playlist has no tracks")

	// ErrVolumeOutOfRange means the requested volume is not in [0,100].
	ErrVolumeOutOfRange = errors.New("volume must be between 0 and 100")
)

// Library is the playlist lookup the play command needs.
type Library interface {
	Playlist(name string) ([]string, error)
	Names() []string
}

// NowPlayingInfo describes the playing track for display.
type NowPlayingInfo struct {
	Track    engine.Track
	Position time.Duration
	Paused   bool
	Volume   int
}

// Handler executes playback commands against the session core.
type Handler struct {
	registry *player.Registry
	waiting  *waitingroom.Controller
	gw       gateway.Client
	lib      Library
	logger   zerolog.Logger
}

// NewHandler wires the command layer.
func NewHandler(registry *player.Registry, waiting *waitingroom.Controller, gw gateway.Client, lib Library) *Handler {
	return &Handler{
		registry: registry,
		waiting:  waiting,
		gw:       gw,
		lib:      lib,
		logger:   log.WithComponent("commands"),
	}
}

// Play connects to the caller's channel if needed and loads the locator.
// The returned outcome says whether the track plays now or was queued.
func (h *Handler) Play(ctx context.Context, tenant gateway.TenantID, channel gateway.ChannelRef, locator string) (player.LoadOutcome, error) {
	ctx, logger := h.begin(ctx, tenant, "play")
	if err := h.gate(tenant); err != nil {
		return player.LoadOutcome{}, err
	}
	if err := h.connect(ctx, tenant, channel); err != nil {
		return player.LoadOutcome{}, err
	}

	outcome := <-h.registry.LoadAndPlay(ctx, tenant, locator)
	logger.Info().
		Str(log.FieldURI, locator).
		Int("outcome", int(outcome.Kind)).
		Msg("play handled")
	return outcome, nil
}

// PlayPlaylist enqueues a named local playlist and reports the number of
// tracks fed to the scheduler.
func (h *Handler) PlayPlaylist(ctx context.Context, tenant gateway.TenantID, channel gateway.ChannelRef, name string) (int, error) {
	ctx, logger := h.begin(ctx, tenant, "play_playlist")
	if err := h.gate(tenant); err != nil {
		return 0, err
	}

	files, err := h.lib.Playlist(name)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("playlist %q: %w", name, ErrEmptyPlaylist)
	}

	if err := h.connect(ctx, tenant, channel); err != nil {
		return 0, err
	}

	queued := 0
	for _, file := range files {
		outcome := <-h.registry.LoadAndPlay(ctx, tenant, file)
		switch outcome.Kind {
		case player.OutcomeNowPlaying, player.OutcomeQueued, player.OutcomePlaylistQueued:
			queued++
		default:
			logger.Warn().Err(outcome.Err).
				Str(log.FieldURI, file).
				Msg("skipping unloadable playlist file")
		}
	}

	logger.Info().
		Str(log.FieldPlaylist, name).
		Int("tracks", queued).
		Msg("playlist queued")
	return queued, nil
}

// Playlists lists the local playlists available to Play.
func (h *Handler) Playlists() []string {
	return h.lib.Names()
}

// Skip abandons the playing track. It returns the track that plays next,
// with ok false when the queue ran empty.
func (h *Handler) Skip(ctx context.Context, tenant gateway.TenantID) (engine.Track, bool, error) {
	_, logger := h.begin(ctx, tenant, "skip")
	if err := h.gate(tenant); err != nil {
		return engine.Track{}, false, err
	}

	sess := h.registry.Session(tenant)
	skipped, playing := sess.Player.Current()
	if !playing {
		return engine.Track{}, false, ErrNothingPlaying
	}

	sess.Scheduler.Advance(true)
	sess.TouchActivity()

	next, ok := sess.Player.Current()
	logger.Info().
		Str(log.FieldTrack, skipped.Title).
		Bool("queue_empty", !ok).
		Msg("track skipped")
	return next, ok, nil
}

// Stop halts playback, clears the queue and closes the voice connection.
// Stop also works while the waiting room is engaged; it is the manual
// escape hatch.
func (h *Handler) Stop(ctx context.Context, tenant gateway.TenantID) error {
	ctx, logger := h.begin(ctx, tenant, "stop")

	sess := h.registry.Session(tenant)
	_, playing := sess.Player.Current()
	if !playing && sess.Scheduler.QueueLen() == 0 {
		return ErrNothingPlaying
	}

	sess.Scheduler.SetRepeating(false)
	sess.Scheduler.Clear()
	sess.TouchActivity()

	if _, ok := h.gw.ConnectedChannel(tenant); ok {
		if err := h.gw.CloseConnection(ctx, tenant); err != nil {
			return fmt.Errorf("close connection: %w", err)
		}
	}

	logger.Info().Msg("playback stopped and queue cleared")
	return nil
}

// Pause suspends the playing track.
func (h *Handler) Pause(ctx context.Context, tenant gateway.TenantID) error {
	return h.setPaused(ctx, tenant, "pause", true)
}

// Resume continues a paused track.
func (h *Handler) Resume(ctx context.Context, tenant gateway.TenantID) error {
	return h.setPaused(ctx, tenant, "resume", false)
}

func (h *Handler) setPaused(ctx context.Context, tenant gateway.TenantID, command string, paused bool) error {
	_, logger := h.begin(ctx, tenant, command)
	if err := h.gate(tenant); err != nil {
		return err
	}

	sess := h.registry.Session(tenant)
	if _, playing := sess.Player.Current(); !playing {
		return ErrNothingPlaying
	}

	sess.Player.SetPaused(paused)
	sess.TouchActivity()
	logger.Info().Bool("paused", paused).Msg("pause state changed")
	return nil
}

// SetVolume sets the tenant's playback volume and reports the applied
// value.
func (h *Handler) SetVolume(ctx context.Context, tenant gateway.TenantID, v int) (int, error) {
	_, logger := h.begin(ctx, tenant, "volume")
	if v < 0 || v > 100 {
		return 0, ErrVolumeOutOfRange
	}

	sess := h.registry.Session(tenant)
	sess.SetVolume(v)
	sess.TouchActivity()

	logger.Info().Int(log.FieldVolume, v).Msg("volume changed")
	return sess.Volume(), nil
}

// Queue reports the playing track and the queued tracks in play order.
func (h *Handler) Queue(tenant gateway.TenantID) (engine.Track, bool, []engine.Track) {
	sess := h.registry.Session(tenant)
	current, playing := sess.Player.Current()
	return current, playing, sess.Scheduler.Snapshot()
}

// NowPlaying describes the playing track.
func (h *Handler) NowPlaying(tenant gateway.TenantID) (NowPlayingInfo, error) {
	sess := h.registry.Session(tenant)
	current, playing := sess.Player.Current()
	if !playing {
		return NowPlayingInfo{}, ErrNothingPlaying
	}
	return NowPlayingInfo{
		Track:    current,
		Position: sess.Player.Position(),
		Paused:   sess.Player.Paused(),
		Volume:   sess.Volume(),
	}, nil
}

// WaitingRoomActivate switches the tenant's waiting room on.
func (h *Handler) WaitingRoomActivate(ctx context.Context, tenant gateway.TenantID, playlist string) error {
	ctx, _ = h.begin(ctx, tenant, "warteraum_activate")
	return h.waiting.Activate(ctx, tenant, playlist)
}

// WaitingRoomDeactivate switches the tenant's waiting room off.
func (h *Handler) WaitingRoomDeactivate(ctx context.Context, tenant gateway.TenantID) error {
	ctx, _ = h.begin(ctx, tenant, "warteraum_deactivate")
	return h.waiting.Deactivate(ctx, tenant)
}

// WaitingRoomState reports the tenant's waiting-room state.
func (h *Handler) WaitingRoomState(tenant gateway.TenantID) waitingroom.State {
	return h.waiting.StateOf(tenant)
}

// begin stamps the context with a correlation id and builds the command's
// logger.
func (h *Handler) begin(ctx context.Context, tenant gateway.TenantID, command string) (context.Context, zerolog.Logger) {
	correlationID := uuid.NewString()
	ctx = log.ContextWithCorrelationID(ctx, correlationID)
	logger := h.logger.With().
		Str(log.FieldCorrelationID, correlationID).
		Str(log.FieldCommand, command).
		Uint64(log.FieldTenantID, uint64(tenant)).
		Logger()
	return ctx, logger
}

// gate refuses manual playback while the waiting room is engaged.
func (h *Handler) gate(tenant gateway.TenantID) error {
	if h.waiting != nil && h.waiting.Active(tenant) {
		return ErrWaitingRoomActive
	}
	return nil
}

// connect joins the caller's voice channel unless already connected to it.
func (h *Handler) connect(ctx context.Context, tenant gateway.TenantID, channel gateway.ChannelRef) error {
	if current, ok := h.gw.ConnectedChannel(tenant); ok && current == channel {
		return nil
	}
	if err := h.gw.OpenConnection(ctx, tenant, channel); err != nil {
		return fmt.Errorf("open connection: %w", err)
	}
	return nil
}
