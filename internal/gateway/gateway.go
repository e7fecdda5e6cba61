// SPDX-License-Identifier: MIT

// Package gateway defines the surface the session core needs from the chat
// gateway: voice connection primitives, channel membership enumeration and
// the voice-state event stream. The production adapter lives outside this
// repository; an in-memory implementation is provided for tests and the
// daemon's standalone mode.
package gateway

import "context"

// TenantID identifies one collaborative space (a guild). It is the sole key
// into the session registry and the waiting-room state map.
type TenantID uint64

// ChannelRef identifies a voice channel within a tenant.
type ChannelRef uint64

// Member is one occupant of a voice channel. Automated members (the bot's
// own connections) are ignored by all presence-driven logic.
type Member struct {
	ID        uint64
	Name      string
	Automated bool
}

// VoiceEvent describes a voice-state change observed on the gateway.
type VoiceEvent struct {
	Tenant  TenantID
	Channel ChannelRef
	Member  Member
	Joined  bool
}

// Client is the gateway surface consumed by the session core.
type Client interface {
	// OpenConnection opens the tenant's voice connection to the given
	// channel, replacing a connection to a different channel if present.
	OpenConnection(ctx context.Context, tenant TenantID, channel ChannelRef) error

	// CloseConnection closes the tenant's voice connection. Closing a
	// tenant without an open connection is a no-op.
	CloseConnection(ctx context.Context, tenant TenantID) error

	// ConnectedChannel reports the channel the tenant is connected to.
	ConnectedChannel(tenant TenantID) (ChannelRef, bool)

	// ChannelMembers enumerates the current occupants of a channel.
	ChannelMembers(ctx context.Context, tenant TenantID, channel ChannelRef) ([]Member, error)

	// Events exposes the voice-state event stream.
	Events() <-chan VoiceEvent
}

// HumanCount returns the number of non-automated members.
func HumanCount(members []Member) int {
	n := 0
	for _, m := range members {
		if !m.Automated {
			n++
		}
	}
	return n
}
