// SPDX-License-Identifier: MIT

package waitingroom

// State is the lifecycle state of one tenant's waiting room.
type State int

const (
	// StateInactive means the waiting room is switched off for the tenant.
	StateInactive State = iota
	// StateMonitoring means presence is watched but no connection is open.
	StateMonitoring
	// StateConnected means the bot sits in the channel playing the playlist.
	StateConnected
)

// String returns the lower-case state name used in logs and metrics.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateMonitoring:
		return "monitoring"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
