// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the session core.
// Label cardinality is bounded: no tenant, channel or track identifiers
// ever appear as label values.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gauges

	// ActiveSessions tracks the number of live tenant sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warteraum_active_sessions",
		Help: "Current number of live tenant audio sessions.",
	})

	// OpenConnections tracks the number of open voice connections.
	OpenConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warteraum_open_connections",
		Help: "Current number of open voice connections.",
	})

	// Counters

	// TracksStartedTotal counts started tracks by origin.
	TracksStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warteraum_tracks_started_total",
		Help: "Total number of tracks started, by origin (command, queue, repeat, waitingroom).",
	}, []string{"origin"})

	// PlaybackFaultsTotal counts playback faults by kind.
	PlaybackFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warteraum_playback_faults_total",
		Help: "Total number of playback faults, by kind (stuck, exception).",
	}, []string{"kind"})

	// LoadOutcomesTotal counts locator resolutions by outcome.
	LoadOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warteraum_load_outcomes_total",
		Help: "Total number of locator resolutions, by outcome (track, playlist, no_match, failed).",
	}, []string{"outcome"})

	// SweepDisconnectsTotal counts idle-sweeper disconnects.
	SweepDisconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warteraum_sweep_disconnects_total",
		Help: "Total number of voice connections closed by the idle sweeper.",
	})

	// WaitingRoomTransitionsTotal counts waiting-room state transitions.
	WaitingRoomTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warteraum_waitingroom_transitions_total",
		Help: "Total number of waiting-room state transitions, by source and target state.",
	}, []string{"from", "to"})
)

// RecordTrackStarted increments the started-tracks counter for one origin.
func RecordTrackStarted(origin string) {
	TracksStartedTotal.WithLabelValues(origin).Inc()
}

// RecordPlaybackFault increments the playback fault counter for one kind.
func RecordPlaybackFault(kind string) {
	PlaybackFaultsTotal.WithLabelValues(kind).Inc()
}

// RecordLoadOutcome increments the load outcome counter.
func RecordLoadOutcome(outcome string) {
	LoadOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordWaitingRoomTransition increments the transition counter.
func RecordWaitingRoomTransition(from, to string) {
	WaitingRoomTransitionsTotal.WithLabelValues(from, to).Inc()
}
