// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHelpersIncrement(t *testing.T) {
	before := testutil.ToFloat64(TracksStartedTotal.WithLabelValues("queue"))
	RecordTrackStarted("queue")
	assert.Equal(t, before+1, testutil.ToFloat64(TracksStartedTotal.WithLabelValues("queue")))

	before = testutil.ToFloat64(WaitingRoomTransitionsTotal.WithLabelValues("monitoring", "connected"))
	RecordWaitingRoomTransition("monitoring", "connected")
	assert.Equal(t, before+1, testutil.ToFloat64(WaitingRoomTransitionsTotal.WithLabelValues("monitoring", "connected")))
}
