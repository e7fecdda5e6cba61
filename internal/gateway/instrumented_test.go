// SPDX-License-Identifier: MIT

package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartel/warteraum/internal/metrics"
)

func gaugeValue() float64 {
	return testutil.ToFloat64(metrics.OpenConnections)
}

func TestInstrument_GaugeBalancesAcrossOpenAndClose(t *testing.T) {
	ctx := context.Background()
	gw := Instrument(NewInMemory())
	base := gaugeValue()

	require.NoError(t, gw.OpenConnection(ctx, 1, 100))
	assert.Equal(t, base+1, gaugeValue())

	// Moving to another channel replaces the connection.
	require.NoError(t, gw.OpenConnection(ctx, 1, 200))
	assert.Equal(t, base+1, gaugeValue())

	require.NoError(t, gw.OpenConnection(ctx, 2, 100))
	assert.Equal(t, base+2, gaugeValue())

	require.NoError(t, gw.CloseConnection(ctx, 1))
	assert.Equal(t, base+1, gaugeValue())

	// Closing a tenant without a connection is a no-op.
	require.NoError(t, gw.CloseConnection(ctx, 1))
	assert.Equal(t, base+1, gaugeValue())

	require.NoError(t, gw.CloseConnection(ctx, 2))
	assert.Equal(t, base, gaugeValue())
}

func TestInstrument_FailedOpenLeavesGaugeUntouched(t *testing.T) {
	inner := NewInMemory()
	inner.FailOpen(1, errors.New("voice region down"))
	gw := Instrument(inner)
	base := gaugeValue()

	require.Error(t, gw.OpenConnection(context.Background(), 1, 100))
	assert.Equal(t, base, gaugeValue())
}
