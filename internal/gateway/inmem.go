// SPDX-License-Identifier: MIT

package gateway

import (
	"context"
	"sync"
)

// InMemory is a self-contained gateway used by tests and by the daemon's
// standalone mode. Membership is mutated through Join/Leave, which also feed
// the event stream the way a real gateway would.
type InMemory struct {
	mu          sync.Mutex
	members     map[TenantID]map[ChannelRef][]Member
	connections map[TenantID]ChannelRef
	closeCalls  map[TenantID]int
	memberErr   map[TenantID]error
	openErr     map[TenantID]error
	events      chan VoiceEvent
}

// NewInMemory creates an empty in-memory gateway.
func NewInMemory() *InMemory {
	return &InMemory{
		members:     make(map[TenantID]map[ChannelRef][]Member),
		connections: make(map[TenantID]ChannelRef),
		closeCalls:  make(map[TenantID]int),
		memberErr:   make(map[TenantID]error),
		openErr:     make(map[TenantID]error),
		events:      make(chan VoiceEvent, 64),
	}
}

// OpenConnection opens the tenant's voice connection to the given channel.
func (g *InMemory) OpenConnection(ctx context.Context, tenant TenantID, channel ChannelRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.openErr[tenant]; err != nil {
		return err
	}
	g.connections[tenant] = channel
	return nil
}

// CloseConnection closes the tenant's voice connection if one is open.
func (g *InMemory) CloseConnection(ctx context.Context, tenant TenantID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.connections[tenant]; ok {
		g.closeCalls[tenant]++
		delete(g.connections, tenant)
	}
	return nil
}

// ConnectedChannel reports the channel the tenant is connected to.
func (g *InMemory) ConnectedChannel(tenant TenantID) (ChannelRef, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.connections[tenant]
	return ch, ok
}

// ChannelMembers enumerates the current occupants of a channel.
func (g *InMemory) ChannelMembers(ctx context.Context, tenant TenantID, channel ChannelRef) ([]Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.memberErr[tenant]; err != nil {
		return nil, err
	}
	src := g.members[tenant][channel]
	out := make([]Member, len(src))
	copy(out, src)
	return out, nil
}

// Events exposes the voice-state event stream.
func (g *InMemory) Events() <-chan VoiceEvent {
	return g.events
}

// Join places a member into a channel and emits the corresponding event.
func (g *InMemory) Join(tenant TenantID, channel ChannelRef, m Member) {
	g.mu.Lock()
	if g.members[tenant] == nil {
		g.members[tenant] = make(map[ChannelRef][]Member)
	}
	g.members[tenant][channel] = append(g.members[tenant][channel], m)
	g.mu.Unlock()

	g.emit(VoiceEvent{Tenant: tenant, Channel: channel, Member: m, Joined: true})
}

// Leave removes a member from a channel and emits the corresponding event.
func (g *InMemory) Leave(tenant TenantID, channel ChannelRef, memberID uint64) {
	g.mu.Lock()
	var left *Member
	occupants := g.members[tenant][channel]
	for i, m := range occupants {
		if m.ID == memberID {
			left = &occupants[i]
			g.members[tenant][channel] = append(occupants[:i:i], occupants[i+1:]...)
			break
		}
	}
	g.mu.Unlock()

	if left != nil {
		g.emit(VoiceEvent{Tenant: tenant, Channel: channel, Member: *left, Joined: false})
	}
}

// ClearChannel removes every member from a channel without emitting events.
func (g *InMemory) ClearChannel(tenant TenantID, channel ChannelRef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if chans, ok := g.members[tenant]; ok {
		delete(chans, channel)
	}
}

// FailMembers makes ChannelMembers return err for the tenant (nil to reset).
func (g *InMemory) FailMembers(tenant TenantID, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.memberErr[tenant] = err
}

// FailOpen makes OpenConnection return err for the tenant (nil to reset).
func (g *InMemory) FailOpen(tenant TenantID, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.openErr[tenant] = err
}

// CloseCalls reports how often the tenant's connection has been closed.
func (g *InMemory) CloseCalls(tenant TenantID) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closeCalls[tenant]
}

// OpenTenants lists tenants with an open connection, for shutdown sweeps.
func (g *InMemory) OpenTenants() []TenantID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]TenantID, 0, len(g.connections))
	for t := range g.connections {
		out = append(out, t)
	}
	return out
}

func (g *InMemory) emit(ev VoiceEvent) {
	select {
	case g.events <- ev:
	default:
		// Event buffer full; a real gateway would coalesce. Tests never
		// get here with a 64-slot buffer.
	}
}

var _ Client = (*InMemory)(nil)
