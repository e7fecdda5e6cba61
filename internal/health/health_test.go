// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChecker struct {
	name   string
	result CheckResult
}

func (c staticChecker) Name() string                      { return c.name }
func (c staticChecker) Check(context.Context) CheckResult { return c.result }

func TestHealth_AlwaysAliveWithoutVerbose(t *testing.T) {
	m := NewManager("1.2.3")
	m.RegisterChecker(staticChecker{"broken", CheckResult{Status: StatusUnhealthy}})

	resp := m.Health(context.Background(), false)

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Checks)
}

func TestHealth_VerboseAggregatesComponents(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(staticChecker{"ok", CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(staticChecker{"slow", CheckResult{Status: StatusDegraded}})

	resp := m.Health(context.Background(), true)

	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
}

func TestReady_UnhealthyComponentBlocksReadiness(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(staticChecker{"ok", CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(staticChecker{"broken", CheckResult{Status: StatusUnhealthy, Error: "down"}})

	resp := m.Ready(context.Background())

	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestReady_NoCheckersIsReady(t *testing.T) {
	resp := NewManager("dev").Ready(context.Background())
	assert.True(t, resp.Ready)
}

func TestServeReady_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		wantCode int
	}{
		{"ready", CheckResult{Status: StatusHealthy}, 200},
		{"degraded still ready", CheckResult{Status: StatusDegraded}, 200},
		{"unhealthy", CheckResult{Status: StatusUnhealthy}, 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("dev")
			m.RegisterChecker(staticChecker{"c", tt.result})

			rec := httptest.NewRecorder()
			m.ServeReady(rec, httptest.NewRequest("GET", "/readyz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode == 200, resp.Ready)
		})
	}
}

func TestServeHealth_VerboseQuery(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(staticChecker{"c", CheckResult{Status: StatusHealthy}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz?verbose=true", nil))

	require.Equal(t, 200, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Checks, 1)
}

func TestLibraryChecker(t *testing.T) {
	empty := NewLibraryChecker(func() []string { return nil })
	assert.Equal(t, StatusDegraded, empty.Check(context.Background()).Status)

	ok := NewLibraryChecker(func() []string { return []string{"chill"} })
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)
}

func TestGatewayChecker(t *testing.T) {
	standalone := NewGatewayChecker(nil)
	assert.Equal(t, StatusHealthy, standalone.Check(context.Background()).Status)

	down := NewGatewayChecker(func(context.Context) error { return errors.New("disconnected") })
	result := down.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, result.Status)
	assert.Equal(t, "disconnected", result.Error)
}

func TestSessionChecker(t *testing.T) {
	c := NewSessionChecker(func() int { return 3 })
	result := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, "3 live sessions", result.Message)
}
