// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	router.ServeHTTP(rec, req)
	return rec
}

func TestPlayCommand(t *testing.T) {
	s, registry, _ := newTestServer(t)
	router := s.Router()

	rec := do(t, router, "POST", "/api/sessions/7/play", `{"locator":"mem://a","channel":200}`)

	require.Equal(t, 200, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "playing", resp["result"])

	_, ok := registry.Session(7).Player.Current()
	assert.True(t, ok)
}

func TestPlayCommand_BadRequests(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	assert.Equal(t, 400, do(t, router, "POST", "/api/sessions/7/play", `{`).Code)
	assert.Equal(t, 400, do(t, router, "POST", "/api/sessions/7/play", `{"channel":200}`).Code)
	assert.Equal(t, 400, do(t, router, "POST", "/api/sessions/abc/play", `{"locator":"mem://a"}`).Code)
}

func TestPlayCommand_RefusedWhileWaitingRoomEngaged(t *testing.T) {
	s, _, waiting := newTestServer(t)
	require.NoError(t, waiting.Activate(context.Background(), 7, "chill"))

	rec := do(t, s.Router(), "POST", "/api/sessions/7/play", `{"locator":"mem://a","channel":200}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSkipCommand(t *testing.T) {
	s, _, _ := newTestServer(t)
	router := s.Router()

	require.Equal(t, 200, do(t, router, "POST", "/api/sessions/7/play", `{"locator":"mem://a","channel":200}`).Code)
	require.Equal(t, 200, do(t, router, "POST", "/api/sessions/7/play", `{"locator":"mem://a","channel":200}`).Code)

	rec := do(t, router, "POST", "/api/sessions/7/skip", "")
	require.Equal(t, 200, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["playing"])

	rec = do(t, router, "POST", "/api/sessions/7/skip", "")
	require.Equal(t, 200, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["playing"])
}

func TestSkipCommand_NothingPlaying(t *testing.T) {
	s, _, _ := newTestServer(t)
	assert.Equal(t, http.StatusConflict, do(t, s.Router(), "POST", "/api/sessions/7/skip", "").Code)
}

func TestStopCommand(t *testing.T) {
	s, registry, _ := newTestServer(t)
	router := s.Router()

	require.Equal(t, 200, do(t, router, "POST", "/api/sessions/7/play", `{"locator":"mem://a","channel":200}`).Code)

	rec := do(t, router, "POST", "/api/sessions/7/stop", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := registry.Session(7).Player.Current()
	assert.False(t, ok)
}

func TestPauseResumeCommands(t *testing.T) {
	s, registry, _ := newTestServer(t)
	router := s.Router()

	require.Equal(t, 200, do(t, router, "POST", "/api/sessions/7/play", `{"locator":"mem://a","channel":200}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, router, "POST", "/api/sessions/7/pause", "").Code)
	assert.True(t, registry.Session(7).Player.Paused())

	assert.Equal(t, http.StatusNoContent, do(t, router, "POST", "/api/sessions/7/resume", "").Code)
	assert.False(t, registry.Session(7).Player.Paused())
}

func TestVolumeCommand(t *testing.T) {
	s, registry, _ := newTestServer(t)
	router := s.Router()

	rec := do(t, router, "PUT", "/api/sessions/7/volume", `{"volume":80}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, 80, registry.Session(7).Volume())

	assert.Equal(t, 400, do(t, router, "PUT", "/api/sessions/7/volume", `{"volume":150}`).Code)
}

func TestWaitingRoomCommands(t *testing.T) {
	s, _, waiting := newTestServer(t)
	router := s.Router()

	rec := do(t, router, "POST", "/api/waitingrooms/3/activate", `{"playlist":"chill"}`)
	require.Equal(t, 200, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "monitoring", resp["state"])

	assert.Equal(t, http.StatusNoContent, do(t, router, "DELETE", "/api/waitingrooms/3", "").Code)
	assert.False(t, waiting.Active(3))
}
