// SPDX-License-Identifier: MIT

package player

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/log"
	"github.com/quartel/warteraum/internal/metrics"
)

// Sweeper periodically walks all sessions and closes voice connections
// that sat idle in an empty channel for longer than the configured
// timeout. Queued tracks survive a sweep; only playback and the
// connection are torn down.
type Sweeper struct {
	registry *Registry
	gw       gateway.Client
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper over the given registry and gateway.
func NewSweeper(registry *Registry, gw gateway.Client, interval time.Duration) *Sweeper {
	return &Sweeper{
		registry: registry,
		gw:       gw,
		interval: interval,
		logger:   log.WithComponent("sweeper"),
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// A non-positive interval disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info().Str(log.FieldEvent, "sweeper.disabled").Msg("idle sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().
		Str(log.FieldEvent, "sweeper.started").
		Dur("interval", s.interval).
		Msg("idle sweeper running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce inspects every session exactly once. Gateway errors on one
// tenant never block the sweep of the others.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	for _, sess := range s.registry.Sessions() {
		s.sweepSession(ctx, sess)
	}
}

func (s *Sweeper) sweepSession(ctx context.Context, sess *Session) {
	channel, ok := s.gw.ConnectedChannel(sess.Tenant)
	if !ok {
		return
	}

	members, err := s.gw.ChannelMembers(ctx, sess.Tenant, channel)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "sweeper.members_failed").
			Uint64(log.FieldTenantID, uint64(sess.Tenant)).
			Msg("skipping tenant, membership lookup failed")
		return
	}

	humans := gateway.HumanCount(members)
	if humans > 0 {
		// Occupied channels keep the session fresh, so the idle clock
		// starts when the last human leaves.
		sess.TouchActivity()
		return
	}
	if !sess.ShouldDisconnect(humans) {
		return
	}

	sess.Player.Stop()
	if err := s.gw.CloseConnection(ctx, sess.Tenant); err != nil {
		s.logger.Error().Err(err).
			Str(log.FieldEvent, "sweeper.close_failed").
			Uint64(log.FieldTenantID, uint64(sess.Tenant)).
			Msg("failed to close idle connection")
		return
	}

	metrics.SweepDisconnectsTotal.Inc()
	s.logger.Info().
		Str(log.FieldEvent, "sweeper.disconnected").
		Uint64(log.FieldTenantID, uint64(sess.Tenant)).
		Uint64(log.FieldChannelID, uint64(channel)).
		Msg("closed idle voice connection")
}
