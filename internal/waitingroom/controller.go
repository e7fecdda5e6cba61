// SPDX-License-Identifier: MIT

// Package waitingroom drives the presence-based background music mode: the
// bot watches one designated voice channel per deployment, joins it while
// humans are present and leaves again once it sat empty for too long.
package waitingroom

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quartel/warteraum/internal/config"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/metrics"
	"github.com/quartel/warteraum/internal/player"
)

var (
	// ErrNotConfigured means no waiting room channel is configured.
	ErrNotConfigured = errors.New("waiting room channel not configured")

	// ErrEmptyPlaylist means the requested playlist holds no tracks.
	ErrEmptyPlaylist = errors.New("playlist has no tracks")
)

// Library is the playlist lookup the controller needs. Implementations
// return the playlist's track locators in play order.
type Library interface {
	Playlist(name string) ([]string, error)
}

// RoomStatus is one tenant's waiting-room state, as served by the API.
type RoomStatus struct {
	Tenant       gateway.TenantID `json:"tenant"`
	State        string           `json:"state"`
	Playlist     string           `json:"playlist"`
	LastActivity time.Time        `json:"lastActivity"`
}

// room carries the waiting-room state of one tenant. Each room has its own
// lock so a slow tenant never stalls the others.
type room struct {
	mu           sync.Mutex
	state        State
	playlist     string
	lastActivity time.Time
}

// Controller runs the waiting-room state machine for all tenants. The
// controller map lock is only held for room lookup; all per-tenant work
// runs under the room's own lock.
type Controller struct {
	gw       gateway.Client
	registry *player.Registry
	lib      Library

	channel         gateway.ChannelRef
	defaultPlaylist string
	pollInterval    time.Duration
	autoLeave       time.Duration
	settleDelay     time.Duration

	mu    sync.Mutex
	rooms map[gateway.TenantID]*room

	now      func() time.Time
	schedule func(time.Duration, func())
	logger   zerolog.Logger
}

// NewController wires the waiting-room state machine to the gateway, the
// session registry and the music library.
func NewController(gw gateway.Client, registry *player.Registry, lib Library, cfg config.Config) *Controller {
	return &Controller{
		gw:              gw,
		registry:        registry,
		lib:             lib,
		channel:         gateway.ChannelRef(cfg.WaitingRoomChannelID),
		defaultPlaylist: cfg.DefaultPlaylist,
		pollInterval:    cfg.PollInterval,
		autoLeave:       cfg.AutoLeaveTimeout,
		settleDelay:     cfg.JoinSettleDelay,
		rooms:           make(map[gateway.TenantID]*room),
		now:             time.Now,
		schedule:        func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		logger:          log.WithComponent("waitingroom"),
	}
}

// Configured reports whether a waiting-room channel is set.
func (c *Controller) Configured() bool {
	return c.channel != 0
}

// Activate switches the tenant's waiting room on with the given playlist
// (empty for the configured default). If humans already sit in the channel
// the bot connects immediately, otherwise it starts monitoring. Activating
// an active room only updates the playlist.
func (c *Controller) Activate(ctx context.Context, tenant gateway.TenantID, playlist string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if playlist == "" {
		playlist = c.defaultPlaylist
	}

	locators, err := c.lib.Playlist(playlist)
	if err != nil {
		return fmt.Errorf("playlist %q: %w", playlist, err)
	}
	if len(locators) == 0 {
		return fmt.Errorf("playlist %q: %w", playlist, ErrEmptyPlaylist)
	}

	rm := c.room(tenant)
	rm.mu.Lock()
	rm.playlist = playlist
	if rm.state == StateInactive {
		c.transition(tenant, rm, StateMonitoring)
		rm.lastActivity = c.now()
	}
	connected := rm.state == StateConnected
	rm.mu.Unlock()

	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.activated").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Str(log.FieldPlaylist, playlist).
		Msg("waiting room activated")

	if !connected {
		c.checkPresence(ctx, tenant, rm)
	}
	return nil
}

// Deactivate switches the tenant's waiting room off, tearing down playback
// and the connection if one is open. Deactivating an inactive room is a
// no-op.
func (c *Controller) Deactivate(ctx context.Context, tenant gateway.TenantID) error {
	rm, ok := c.lookup(tenant)
	if !ok {
		return nil
	}

	rm.mu.Lock()
	from := rm.state
	if from == StateInactive {
		rm.mu.Unlock()
		return nil
	}
	c.transition(tenant, rm, StateInactive)
	rm.mu.Unlock()

	if from == StateConnected {
		c.teardown(ctx, tenant)
	}
	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.deactivated").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Msg("waiting room deactivated")
	return nil
}

// Active reports whether the tenant's waiting room is engaged, in either
// monitoring or connected state. Manual playback commands are refused
// while this holds.
func (c *Controller) Active(tenant gateway.TenantID) bool {
	return c.StateOf(tenant) != StateInactive
}

// StateOf reports the tenant's waiting-room state.
func (c *Controller) StateOf(tenant gateway.TenantID) State {
	rm, ok := c.lookup(tenant)
	if !ok {
		return StateInactive
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state
}

// Status reports all known rooms, ordered by tenant.
func (c *Controller) Status() []RoomStatus {
	c.mu.Lock()
	tenants := make([]gateway.TenantID, 0, len(c.rooms))
	for t := range c.rooms {
		tenants = append(tenants, t)
	}
	c.mu.Unlock()
	sort.Slice(tenants, func(i, j int) bool { return tenants[i] < tenants[j] })

	out := make([]RoomStatus, 0, len(tenants))
	for _, t := range tenants {
		rm, ok := c.lookup(t)
		if !ok {
			continue
		}
		rm.mu.Lock()
		out = append(out, RoomStatus{
			Tenant:       t,
			State:        rm.state.String(),
			Playlist:     rm.playlist,
			LastActivity: rm.lastActivity,
		})
		rm.mu.Unlock()
	}
	return out
}

// HandleVoiceEvent reacts to channel joins while monitoring. The presence
// re-check runs after a short settle delay, once the join is fully
// propagated on the gateway side.
func (c *Controller) HandleVoiceEvent(ev gateway.VoiceEvent) {
	if !ev.Joined || ev.Member.Automated || ev.Channel != c.channel {
		return
	}
	rm, ok := c.lookup(ev.Tenant)
	if !ok {
		return
	}
	rm.mu.Lock()
	monitoring := rm.state == StateMonitoring
	rm.mu.Unlock()
	if !monitoring {
		return
	}

	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.join_observed").
		Uint64(log.FieldTenantID, uint64(ev.Tenant)).
		Str("member", ev.Member.Name).
		Msg("member joined waiting room, scheduling connect")

	tenant := ev.Tenant
	c.schedule(c.settleDelay, func() {
		c.checkPresence(context.Background(), tenant, rm)
	})
}

// Run polls all engaged rooms on the configured interval and consumes the
// gateway's voice-event stream until the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.started").
		Dur("poll_interval", c.pollInterval).
		Uint64(log.FieldChannelID, uint64(c.channel)).
		Msg("waiting room controller running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.PollOnce(ctx)
		case ev, ok := <-c.gw.Events():
			if !ok {
				return nil
			}
			c.HandleVoiceEvent(ev)
		}
	}
}

// PollOnce runs one scan over all engaged rooms.
func (c *Controller) PollOnce(ctx context.Context) {
	c.mu.Lock()
	snapshot := make(map[gateway.TenantID]*room, len(c.rooms))
	for t, rm := range c.rooms {
		snapshot[t] = rm
	}
	c.mu.Unlock()

	for tenant, rm := range snapshot {
		rm.mu.Lock()
		state := rm.state
		rm.mu.Unlock()

		switch state {
		case StateConnected:
			c.pollConnected(ctx, tenant, rm)
		case StateMonitoring:
			c.checkPresence(ctx, tenant, rm)
		}
	}
}

// Shutdown deactivates every engaged room, closing open connections.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	tenants := make([]gateway.TenantID, 0, len(c.rooms))
	for t := range c.rooms {
		tenants = append(tenants, t)
	}
	c.mu.Unlock()

	for _, t := range tenants {
		_ = c.Deactivate(ctx, t)
	}
}

func (c *Controller) room(tenant gateway.TenantID) *room {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[tenant]
	if !ok {
		rm = &room{state: StateInactive}
		c.rooms[tenant] = rm
	}
	return rm
}

func (c *Controller) lookup(tenant gateway.TenantID) (*room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[tenant]
	return rm, ok
}

// transition switches the room state. Callers hold rm.mu.
func (c *Controller) transition(tenant gateway.TenantID, rm *room, to State) {
	from := rm.state
	if from == to {
		return
	}
	rm.state = to
	metrics.RecordWaitingRoomTransition(from.String(), to.String())
	c.logger.Debug().
		Str(log.FieldEvent, "waitingroom.transition").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Str(log.FieldOldState, from.String()).
		Str(log.FieldNewState, to.String()).
		Msg("state changed")
}

// checkPresence connects the tenant if humans currently sit in the channel.
func (c *Controller) checkPresence(ctx context.Context, tenant gateway.TenantID, rm *room) {
	members, err := c.gw.ChannelMembers(ctx, tenant, c.channel)
	if err != nil {
		c.logger.Warn().Err(err).
			Str(log.FieldEvent, "waitingroom.members_failed").
			Uint64(log.FieldTenantID, uint64(tenant)).
			Msg("membership lookup failed")
		return
	}
	if gateway.HumanCount(members) == 0 {
		return
	}
	c.tryConnect(ctx, tenant, rm)
}

// tryConnect opens the connection and starts the playlist. A failed connect
// leaves the room in monitoring state for the next poll to retry.
func (c *Controller) tryConnect(ctx context.Context, tenant gateway.TenantID, rm *room) {
	rm.mu.Lock()
	if rm.state != StateMonitoring {
		rm.mu.Unlock()
		return
	}
	if err := c.gw.OpenConnection(ctx, tenant, c.channel); err != nil {
		rm.mu.Unlock()
		c.logger.Warn().Err(err).
			Str(log.FieldEvent, "waitingroom.connect_failed").
			Uint64(log.FieldTenantID, uint64(tenant)).
			Msg("connect failed, staying in monitoring mode")
		return
	}
	c.transition(tenant, rm, StateConnected)
	rm.lastActivity = c.now()
	playlist := rm.playlist
	rm.mu.Unlock()

	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.connected").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Uint64(log.FieldChannelID, uint64(c.channel)).
		Msg("connected to waiting room")

	c.playPlaylist(ctx, tenant, playlist)
}

// playPlaylist clears the tenant's queue and feeds the playlist through the
// registry, then turns repeat mode on so the room never falls silent.
func (c *Controller) playPlaylist(ctx context.Context, tenant gateway.TenantID, name string) {
	locators, err := c.lib.Playlist(name)
	if err != nil {
		c.logger.Error().Err(err).
			Str(log.FieldEvent, "waitingroom.playlist_failed").
			Uint64(log.FieldTenantID, uint64(tenant)).
			Str(log.FieldPlaylist, name).
			Msg("playlist lookup failed")
		return
	}

	sess := c.registry.Session(tenant)
	sess.Scheduler.SetRepeating(false)
	sess.Scheduler.Clear()

	queued := 0
	for _, locator := range locators {
		outcome := <-c.registry.LoadAndPlay(ctx, tenant, locator)
		switch outcome.Kind {
		case player.OutcomeNowPlaying, player.OutcomeQueued, player.OutcomePlaylistQueued:
			queued++
		default:
			c.logger.Warn().Err(outcome.Err).
				Str(log.FieldEvent, "waitingroom.track_skipped").
				Uint64(log.FieldTenantID, uint64(tenant)).
				Str(log.FieldURI, locator).
				Msg("skipping unloadable track")
		}
	}

	sess.Scheduler.SetRepeating(true)
	sess.TouchActivity()
	metrics.RecordTrackStarted("waitingroom")

	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.playlist_started").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Str(log.FieldPlaylist, name).
		Int("tracks", queued).
		Msg("waiting room playlist playing")
}

// pollConnected enforces the auto-leave timeout on a connected room.
func (c *Controller) pollConnected(ctx context.Context, tenant gateway.TenantID, rm *room) {
	members, err := c.gw.ChannelMembers(ctx, tenant, c.channel)
	if err != nil {
		c.logger.Warn().Err(err).
			Str(log.FieldEvent, "waitingroom.members_failed").
			Uint64(log.FieldTenantID, uint64(tenant)).
			Msg("membership lookup failed")
		return
	}

	if gateway.HumanCount(members) > 0 {
		rm.mu.Lock()
		rm.lastActivity = c.now()
		rm.mu.Unlock()
		c.registry.Session(tenant).TouchActivity()
		return
	}

	rm.mu.Lock()
	if rm.state != StateConnected || c.now().Sub(rm.lastActivity) < c.autoLeave {
		rm.mu.Unlock()
		return
	}
	c.transition(tenant, rm, StateMonitoring)
	rm.mu.Unlock()

	c.teardown(ctx, tenant)
	c.logger.Info().
		Str(log.FieldEvent, "waitingroom.auto_left").
		Uint64(log.FieldTenantID, uint64(tenant)).
		Msg("waiting room empty, disconnected until someone returns")
}

// teardown stops waiting-room playback and closes the connection. The queue
// and repeat flag are reset so a later manual session starts clean.
func (c *Controller) teardown(ctx context.Context, tenant gateway.TenantID) {
	sess := c.registry.Session(tenant)
	sess.Scheduler.SetRepeating(false)
	sess.Scheduler.Clear()

	if _, ok := c.gw.ConnectedChannel(tenant); !ok {
		return
	}
	if err := c.gw.CloseConnection(ctx, tenant); err != nil {
		c.logger.Error().Err(err).
			Str(log.FieldEvent, "waitingroom.close_failed").
			Uint64(log.FieldTenantID, uint64(tenant)).
			Msg("failed to close connection")
	}
}
