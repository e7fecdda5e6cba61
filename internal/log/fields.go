// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldTenantID      = "tenant_id"
	FieldChannelID     = "channel_id"
	FieldCorrelationID = "correlation_id"
	FieldCommand       = "command"

	// Playback fields
	FieldTrack    = "track"
	FieldURI      = "uri"
	FieldPlaylist = "playlist"
	FieldVolume   = "volume"

	// State fields
	FieldEvent    = "event"
	FieldOldState = "old_state"
	FieldNewState = "new_state"
)
