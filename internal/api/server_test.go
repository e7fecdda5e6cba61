// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartel/warteraum/internal/commands"
	"github.com/quartel/warteraum/internal/config"
	"github.com/quartel/warteraum/internal/engine"
	"github.com/quartel/warteraum/internal/gateway"
	"github.com/quartel/warteraum/internal/health"
	"github.com/quartel/warteraum/internal/player"
	"github.com/quartel/warteraum/internal/waitingroom"
)

type stubLibrary struct{}

func (stubLibrary) Playlist(string) ([]string, error) { return []string{"mem://a"}, nil }
func (stubLibrary) Names() []string                   { return []string{"chill", "energetic"} }

func newTestServer(t *testing.T) (*Server, *player.Registry, *waitingroom.Controller) {
	t.Helper()

	cfg := config.Defaults()
	cfg.WaitingRoomChannelID = 100

	eng := engine.NewInMemory()
	eng.AddTrack("mem://a", engine.Track{Title: "a", URI: "mem://a", Duration: 3 * time.Minute})
	registry := player.NewRegistry(eng, cfg)
	gw := gateway.NewInMemory()
	waiting := waitingroom.NewController(gw, registry, stubLibrary{}, cfg)
	handler := commands.NewHandler(registry, waiting, gw, stubLibrary{})

	return NewServer(registry, waiting, health.NewManager("test"), stubLibrary{}, handler), registry, waiting
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestProbes(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	assert.Equal(t, 200, get(t, router, "/healthz").Code)
	assert.Equal(t, 200, get(t, router, "/readyz").Code)
}

func TestSessions_EmptyRegistry(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(t, s.Router(), "/api/sessions")

	require.Equal(t, 200, rec.Code)
	var views []SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Empty(t, views)
}

func TestSessions_ListsLiveSessions(t *testing.T) {
	s, registry, _ := newTestServer(t)
	<-registry.LoadAndPlay(context.Background(), 7, "mem://a")

	rec := get(t, s.Router(), "/api/sessions")

	require.Equal(t, 200, rec.Code)
	var views []SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, gateway.TenantID(7), views[0].Tenant)
	assert.True(t, views[0].Playing)
	require.NotNil(t, views[0].Track)
	assert.Equal(t, "a", views[0].Track.Title)
	assert.Equal(t, "03:00", views[0].Track.Duration)
}

func TestSessionDetail(t *testing.T) {
	s, registry, _ := newTestServer(t)
	<-registry.LoadAndPlay(context.Background(), 7, "mem://a")
	<-registry.LoadAndPlay(context.Background(), 7, "mem://a")

	rec := get(t, s.Router(), "/api/sessions/7")

	require.Equal(t, 200, rec.Code)
	var detail SessionDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, 1, detail.QueueLength)
	require.Len(t, detail.Queue, 1)
	assert.Equal(t, "a", detail.Queue[0].Title)
}

func TestSessionDetail_Errors(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/sessions/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/api/sessions/99").Code)
}

func TestWaitingRooms(t *testing.T) {
	s, _, waiting := newTestServer(t)
	require.NoError(t, waiting.Activate(context.Background(), 3, "chill"))

	rec := get(t, s.Router(), "/api/waitingrooms")

	require.Equal(t, 200, rec.Code)
	var rooms []waitingroom.RoomStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "monitoring", rooms[0].State)
	assert.Equal(t, "chill", rooms[0].Playlist)
}

func TestPlaylists(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(t, s.Router(), "/api/playlists")

	require.Equal(t, 200, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Equal(t, []string{"chill", "energetic"}, names)
}

func TestRequestID_Propagated(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	router.ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-Id"))

	rec = get(t, router, "/healthz")
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
