// SPDX-License-Identifier: MIT

package gateway

import (
	"context"

	"github.com/quartel/warteraum/internal/metrics"
)

// instrumentedClient keeps the open-connections gauge in step with the
// wrapped client. Counting lives here so every open and close path, manual
// commands, the waiting room and the sweeper alike, balances the gauge.
type instrumentedClient struct {
	Client
}

// Instrument wraps a client with open-connections gauge accounting.
func Instrument(c Client) Client {
	return &instrumentedClient{Client: c}
}

func (c *instrumentedClient) OpenConnection(ctx context.Context, tenant TenantID, channel ChannelRef) error {
	_, wasConnected := c.ConnectedChannel(tenant)
	if err := c.Client.OpenConnection(ctx, tenant, channel); err != nil {
		return err
	}
	// A channel move replaces an existing connection; the count is
	// unchanged.
	if !wasConnected {
		metrics.OpenConnections.Inc()
	}
	return nil
}

func (c *instrumentedClient) CloseConnection(ctx context.Context, tenant TenantID) error {
	_, wasConnected := c.ConnectedChannel(tenant)
	if err := c.Client.CloseConnection(ctx, tenant); err != nil {
		return err
	}
	if wasConnected {
		metrics.OpenConnections.Dec()
	}
	return nil
}
