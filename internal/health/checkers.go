// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
)

// LibraryChecker verifies the music library is reachable and holds at
// least one playlist.
type LibraryChecker struct {
	names func() []string
}

// NewLibraryChecker creates a checker over the library's playlist listing.
func NewLibraryChecker(names func() []string) *LibraryChecker {
	return &LibraryChecker{names: names}
}

func (c *LibraryChecker) Name() string { return "library" }

func (c *LibraryChecker) Check(ctx context.Context) CheckResult {
	names := c.names()
	if len(names) == 0 {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "no playlists configured",
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d playlists", len(names)),
	}
}

// GatewayChecker verifies the chat gateway connection via the provided
// probe function.
type GatewayChecker struct {
	probe func(ctx context.Context) error
}

// NewGatewayChecker creates a checker calling the gateway adapter's probe.
func NewGatewayChecker(probe func(ctx context.Context) error) *GatewayChecker {
	return &GatewayChecker{probe: probe}
}

func (c *GatewayChecker) Name() string { return "gateway" }

func (c *GatewayChecker) Check(ctx context.Context) CheckResult {
	if c.probe == nil {
		return CheckResult{Status: StatusHealthy, Message: "standalone mode"}
	}
	if err := c.probe(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "connected"}
}

// SessionChecker reports the number of live tenant sessions. Always
// healthy; the count is informational.
type SessionChecker struct {
	count func() int
}

// NewSessionChecker creates a checker over the session registry size.
func NewSessionChecker(count func() int) *SessionChecker {
	return &SessionChecker{count: count}
}

func (c *SessionChecker) Name() string { return "sessions" }

func (c *SessionChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{
		Status:  StatusHealthy,
		Message: fmt.Sprintf("%d live sessions", c.count()),
	}
}
