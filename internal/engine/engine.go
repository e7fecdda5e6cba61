// SPDX-License-Identifier: MIT

// Package engine defines the surface the session core needs from the audio
// engine: locator resolution, per-tenant players and playback event
// delivery. The heavy decode/ingest machinery is an external collaborator;
// this package carries its contract plus an in-memory reference engine.
package engine

import (
	"context"
	"time"
)

// Track is an immutable handle to a playable piece of audio.
type Track struct {
	Title    string
	URI      string
	Duration time.Duration
}

// Clone returns a fresh playable instance of the track. Players consume a
// track's playback position, so a finished track must be cloned before it
// can be started again.
func (t Track) Clone() Track {
	return Track{Title: t.Title, URI: t.URI, Duration: t.Duration}
}

// LoadKind tags the variants of a resolution result.
type LoadKind int

const (
	// LoadTrack means the locator resolved to a single track.
	LoadTrack LoadKind = iota
	// LoadPlaylist means the locator resolved to an ordered set of tracks.
	LoadPlaylist
	// LoadNoMatch means the engine found nothing for the locator.
	LoadNoMatch
	// LoadFailed means resolution failed; Err carries the reason.
	LoadFailed
)

// LoadResult is the tagged union delivered for one resolution request.
type LoadResult struct {
	Kind LoadKind

	// Track is set for LoadTrack.
	Track Track

	// Tracks and Name are set for LoadPlaylist, in source order. Search
	// marks a search-result playlist, of which only the first hit is used.
	Tracks []Track
	Name   string
	Search bool

	// Err is set for LoadFailed.
	Err error
}

// Resolver resolves a locator (URL, file path or search term) into playable
// tracks. Resolution is asynchronous; exactly one result is delivered on the
// returned channel, which is then closed.
type Resolver interface {
	Resolve(ctx context.Context, locator string) <-chan LoadResult
}

// Listener receives playback events for one player. Events arrive on
// engine-owned goroutines.
type Listener interface {
	// TrackEnded fires when a track stops playing. mayStartNext is false
	// for manual stops and failures that the caller already handled.
	TrackEnded(t Track, mayStartNext bool)

	// TrackStuck fires when a track made no progress for threshold.
	TrackStuck(t Track, threshold time.Duration)

	// TrackException fires when playback raised an error.
	TrackException(t Track, err error)
}

// Player is the per-tenant playback unit.
type Player interface {
	// Start begins playback of t. With noInterrupt set, a playing track
	// is not replaced and Start reports false. The decision is atomic.
	Start(t Track, noInterrupt bool) bool

	// Stop halts the current track without starting another. The ensuing
	// TrackEnded event carries mayStartNext=false.
	Stop()

	// Current reports the playing track, if any.
	Current() (Track, bool)

	// Position reports how far playback of the current track progressed.
	Position() time.Duration

	// SetPaused suspends or resumes playback.
	SetPaused(paused bool)

	// Paused reports whether playback is suspended.
	Paused() bool

	// SetVolume sets the playback volume within [0,100].
	SetVolume(v int)

	// Volume reports the current playback volume.
	Volume() int

	// AddListener registers a playback event listener.
	AddListener(l Listener)
}

// Engine creates players and resolves locators.
type Engine interface {
	Resolver
	NewPlayer() Player
}
