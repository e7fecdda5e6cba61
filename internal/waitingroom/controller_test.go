// SPDX-License-Identifier: MIT

package waitingroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartel/warteraum/internal/config"
	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/player"
)

const testChannel = gateway.ChannelRef(100)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeLibrary struct {
	mu    sync.Mutex
	lists map[string][]string
	err   error
}

func (l *fakeLibrary) Playlist(name string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.lists[name], nil
}

// scheduleRecorder captures deferred calls so tests fire them explicitly.
type scheduleRecorder struct {
	mu    sync.Mutex
	calls []struct {
		delay time.Duration
		fn    func()
	}
}

func (r *scheduleRecorder) Schedule(d time.Duration, f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, struct {
		delay time.Duration
		fn    func()
	}{d, f})
}

func (r *scheduleRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *scheduleRecorder) Fire() {
	r.mu.Lock()
	calls := r.calls
	r.calls = nil
	r.mu.Unlock()
	for _, c := range calls {
		c.fn()
	}
}

type fixture struct {
	ctrl     *Controller
	gw       *gateway.InMemory
	eng      *engine.InMemory
	registry *player.Registry
	clock    *fakeClock
	sched    *scheduleRecorder
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Defaults()
	cfg.WaitingRoomChannelID = uint64(testChannel)
	if mutate != nil {
		mutate(&cfg)
	}

	eng := engine.NewInMemory()
	eng.AddTrack("file://a.mp3", engine.Track{Title: "a", URI: "file://a.mp3"})
	eng.AddTrack("file://b.mp3", engine.Track{Title: "b", URI: "file://b.mp3"})

	lib := &fakeLibrary{lists: map[string][]string{
		"chill":     {"file://a.mp3", "file://b.mp3"},
		"energetic": {"file://b.mp3"},
	}}

	gw := gateway.NewInMemory()
	registry := player.NewRegistry(eng, cfg)
	ctrl := NewController(gw, registry, lib, cfg)

	clock := newFakeClock()
	sched := &scheduleRecorder{}
	ctrl.now = clock.Now
	ctrl.schedule = sched.Schedule

	return &fixture{ctrl: ctrl, gw: gw, eng: eng, registry: registry, clock: clock, sched: sched}
}

func (f *fixture) join(tenant gateway.TenantID, id uint64, name string) {
	f.gw.Join(tenant, testChannel, gateway.Member{ID: id, Name: name})
}

func TestActivate_NotConfigured(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.WaitingRoomChannelID = 0 })

	err := f.ctrl.Activate(context.Background(), 1, "")

	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, StateInactive, f.ctrl.StateOf(1))
}

func TestActivate_UnknownPlaylist(t *testing.T) {
	f := newFixture(t, nil)

	err := f.ctrl.Activate(context.Background(), 1, "does-not-exist")

	assert.ErrorIs(t, err, ErrEmptyPlaylist)
}

func TestActivate_EmptyChannelStartsMonitoring(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))
	_, connected := f.gw.ConnectedChannel(1)
	assert.False(t, connected)
	assert.True(t, f.ctrl.Active(1))
}

func TestActivate_OccupiedChannelConnectsAndPlays(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")

	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))
	ch, connected := f.gw.ConnectedChannel(1)
	require.True(t, connected)
	assert.Equal(t, testChannel, ch)

	sess := f.registry.Session(1)
	cur, playing := sess.Player.Current()
	require.True(t, playing)
	assert.Equal(t, "a", cur.Title)
	assert.Equal(t, 1, sess.Scheduler.QueueLen())
	assert.True(t, sess.Scheduler.Repeating())
}

func TestActivate_WhileMonitoringUpdatesPlaylist(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, "chill"))

	require.NoError(t, f.ctrl.Activate(context.Background(), 1, "energetic"))

	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))
	status := f.ctrl.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "energetic", status[0].Playlist)

	// The updated playlist is what plays once someone shows up.
	f.join(1, 5, "anna")
	f.ctrl.PollOnce(context.Background())
	cur, playing := f.registry.Session(1).Player.Current()
	require.True(t, playing)
	assert.Equal(t, "b", cur.Title)
}

func TestActivate_ConnectFailureStaysMonitoring(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	f.gw.FailOpen(1, errors.New("voice region down"))

	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))

	// Next poll retries once the gateway recovers.
	f.gw.FailOpen(1, nil)
	f.ctrl.PollOnce(context.Background())
	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))
}

func TestHandleVoiceEvent_ConnectsAfterSettleDelay(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	f.join(1, 5, "anna")
	ev := gateway.VoiceEvent{Tenant: 1, Channel: testChannel, Member: gateway.Member{ID: 5, Name: "anna"}, Joined: true}
	f.ctrl.HandleVoiceEvent(ev)

	require.Equal(t, 1, f.sched.Len(), "connect is deferred, not immediate")
	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))

	f.sched.Fire()
	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))
}

func TestHandleVoiceEvent_SettleCheckSeesEmptyChannel(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	f.join(1, 5, "anna")
	f.ctrl.HandleVoiceEvent(gateway.VoiceEvent{Tenant: 1, Channel: testChannel, Member: gateway.Member{ID: 5}, Joined: true})

	// The member bounces before the settle delay elapses.
	f.gw.ClearChannel(1, testChannel)
	f.sched.Fire()

	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))
	_, connected := f.gw.ConnectedChannel(1)
	assert.False(t, connected)
}

func TestHandleVoiceEvent_Ignored(t *testing.T) {
	tests := []struct {
		name string
		ev   gateway.VoiceEvent
	}{
		{"leave event", gateway.VoiceEvent{Tenant: 1, Channel: testChannel, Member: gateway.Member{ID: 5}, Joined: false}},
		{"other channel", gateway.VoiceEvent{Tenant: 1, Channel: 999, Member: gateway.Member{ID: 5}, Joined: true}},
		{"automated member", gateway.VoiceEvent{Tenant: 1, Channel: testChannel, Member: gateway.Member{ID: 5, Automated: true}, Joined: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

			f.ctrl.HandleVoiceEvent(tt.ev)

			assert.Zero(t, f.sched.Len())
		})
	}
}

func TestHandleVoiceEvent_IgnoredWhenNotMonitoring(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))
	require.Equal(t, StateConnected, f.ctrl.StateOf(1))

	f.ctrl.HandleVoiceEvent(gateway.VoiceEvent{Tenant: 1, Channel: testChannel, Member: gateway.Member{ID: 6}, Joined: true})

	assert.Zero(t, f.sched.Len())
}

func TestPollOnce_AutoLeaveAfterTimeout(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))
	require.Equal(t, StateConnected, f.ctrl.StateOf(1))

	f.gw.ClearChannel(1, testChannel)

	// Empty but inside the timeout: connection stays up.
	f.clock.Advance(30 * time.Second)
	f.ctrl.PollOnce(context.Background())
	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))
	assert.Zero(t, f.gw.CloseCalls(1))

	// Past the timeout: disconnect, back to monitoring, playback reset.
	f.clock.Advance(31 * time.Second)
	f.ctrl.PollOnce(context.Background())

	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))
	assert.Equal(t, 1, f.gw.CloseCalls(1))

	sess := f.registry.Session(1)
	_, playing := sess.Player.Current()
	assert.False(t, playing)
	assert.Zero(t, sess.Scheduler.QueueLen())
	assert.False(t, sess.Scheduler.Repeating())
}

func TestPollOnce_OccupancyRefreshesActivity(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	// Far past the timeout, but the channel never empties.
	f.clock.Advance(10 * time.Minute)
	f.ctrl.PollOnce(context.Background())
	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))

	// The refreshed activity clock means a fresh departure starts at zero.
	f.gw.ClearChannel(1, testChannel)
	f.clock.Advance(30 * time.Second)
	f.ctrl.PollOnce(context.Background())
	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))
}

func TestPollOnce_BotOnlyChannelCountsAsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	f.gw.ClearChannel(1, testChannel)
	f.gw.Join(1, testChannel, gateway.Member{ID: 9, Name: "bot", Automated: true})

	f.clock.Advance(61 * time.Second)
	f.ctrl.PollOnce(context.Background())

	assert.Equal(t, StateMonitoring, f.ctrl.StateOf(1))
}

func TestDeactivate_TearsDownConnectedRoom(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	require.NoError(t, f.ctrl.Deactivate(context.Background(), 1))

	assert.Equal(t, StateInactive, f.ctrl.StateOf(1))
	assert.False(t, f.ctrl.Active(1))
	assert.Equal(t, 1, f.gw.CloseCalls(1))
	_, playing := f.registry.Session(1).Player.Current()
	assert.False(t, playing)
}

func TestDeactivate_Idempotent(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.ctrl.Deactivate(context.Background(), 1))
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))
	require.NoError(t, f.ctrl.Deactivate(context.Background(), 1))
	require.NoError(t, f.ctrl.Deactivate(context.Background(), 1))

	assert.Equal(t, StateInactive, f.ctrl.StateOf(1))
}

func TestStatus_SortedByTenant(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Activate(context.Background(), 9, ""))
	require.NoError(t, f.ctrl.Activate(context.Background(), 3, "energetic"))

	status := f.ctrl.Status()

	require.Len(t, status, 2)
	assert.Equal(t, gateway.TenantID(3), status[0].Tenant)
	assert.Equal(t, "energetic", status[0].Playlist)
	assert.Equal(t, gateway.TenantID(9), status[1].Tenant)
	assert.Equal(t, "monitoring", status[1].State)
}

func TestShutdown_DeactivatesAllRooms(t *testing.T) {
	f := newFixture(t, nil)
	f.join(1, 5, "anna")
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))
	require.NoError(t, f.ctrl.Activate(context.Background(), 2, ""))

	f.ctrl.Shutdown(context.Background())

	assert.Equal(t, StateInactive, f.ctrl.StateOf(1))
	assert.Equal(t, StateInactive, f.ctrl.StateOf(2))
	assert.Equal(t, 1, f.gw.CloseCalls(1))
}

func TestRun_ConsumesVoiceEvents(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.ctrl.Activate(context.Background(), 1, ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	f.join(1, 5, "anna")

	require.Eventually(t, func() bool { return f.sched.Len() == 1 },
		time.Second, 5*time.Millisecond, "join event reaches the controller")
	f.sched.Fire()
	assert.Equal(t, StateConnected, f.ctrl.StateOf(1))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("controller did not stop")
	}
}
