// SPDX-License-Identifier: MIT

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// InMemory is a reference engine with a programmable catalog. It backs the
// package tests and the daemon's standalone mode; it produces no audio.
type InMemory struct {
	mu      sync.Mutex
	catalog map[string]LoadResult
}

// NewInMemory creates an engine with an empty catalog. Unknown locators
// resolve to LoadNoMatch.
func NewInMemory() *InMemory {
	return &InMemory{catalog: make(map[string]LoadResult)}
}

// AddTrack registers a locator that resolves to a single track.
func (e *InMemory) AddTrack(locator string, t Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog[locator] = LoadResult{Kind: LoadTrack, Track: t}
}

// AddPlaylist registers a locator that resolves to an ordered playlist.
func (e *InMemory) AddPlaylist(locator, name string, search bool, tracks ...Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog[locator] = LoadResult{Kind: LoadPlaylist, Name: name, Search: search, Tracks: tracks}
}

// FailWith registers a locator whose resolution fails with err.
func (e *InMemory) FailWith(locator string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog[locator] = LoadResult{Kind: LoadFailed, Err: err}
}

// Resolve looks the locator up in the catalog and delivers the result
// asynchronously, mirroring the callback-based contract of a real engine.
func (e *InMemory) Resolve(ctx context.Context, locator string) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	go func() {
		defer close(out)
		e.mu.Lock()
		res, ok := e.catalog[locator]
		e.mu.Unlock()
		if !ok {
			res = LoadResult{Kind: LoadNoMatch}
		}
		select {
		case out <- res:
		case <-ctx.Done():
		}
	}()
	return out
}

// NewPlayer creates a silent player.
func (e *InMemory) NewPlayer() Player {
	return &MemoryPlayer{volume: 100}
}

var _ Engine = (*InMemory)(nil)

// MemoryPlayer tracks playback state without producing audio. Event emission
// is driven from the outside via the Emit helpers, standing in for the
// engine threads of a real implementation.
type MemoryPlayer struct {
	mu        sync.Mutex
	current   *Track
	paused    bool
	volume    int
	listeners []Listener
	started   int
	stopped   int
}

func (p *MemoryPlayer) Start(t Track, noInterrupt bool) bool {
	p.mu.Lock()
	if p.current != nil && noInterrupt {
		p.mu.Unlock()
		return false
	}
	prev := p.current
	tt := t
	p.current = &tt
	p.paused = false
	p.started++
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	if prev != nil {
		// Replacing a track ends it without auto-advance eligibility.
		for _, l := range listeners {
			l.TrackEnded(*prev, false)
		}
	}
	return true
}

func (p *MemoryPlayer) Stop() {
	p.mu.Lock()
	prev := p.current
	p.current = nil
	if prev != nil {
		p.stopped++
	}
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	if prev != nil {
		for _, l := range listeners {
			l.TrackEnded(*prev, false)
		}
	}
}

func (p *MemoryPlayer) Current() (Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Track{}, false
	}
	return *p.current, true
}

func (p *MemoryPlayer) Position() time.Duration {
	return 0
}

func (p *MemoryPlayer) SetPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = paused
}

func (p *MemoryPlayer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *MemoryPlayer) SetVolume(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

func (p *MemoryPlayer) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *MemoryPlayer) AddListener(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// StartCount reports how many tracks have been started on this player.
func (p *MemoryPlayer) StartCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// StopCount reports how many tracks have been stopped on this player.
func (p *MemoryPlayer) StopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

func (p *MemoryPlayer) snapshotListeners() []Listener {
	out := make([]Listener, len(p.listeners))
	copy(out, p.listeners)
	return out
}

// EmitEnded simulates the engine finishing the current track.
func (p *MemoryPlayer) EmitEnded(mayStartNext bool) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return fmt.Errorf("no current track")
	}
	t := *p.current
	p.current = nil
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	for _, l := range listeners {
		l.TrackEnded(t, mayStartNext)
	}
	return nil
}

// EmitStuck simulates the engine reporting the current track as stuck.
func (p *MemoryPlayer) EmitStuck(threshold time.Duration) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return fmt.Errorf("no current track")
	}
	t := *p.current
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	for _, l := range listeners {
		l.TrackStuck(t, threshold)
	}
	return nil
}

// EmitException simulates a playback error on the current track.
func (p *MemoryPlayer) EmitException(err error) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return fmt.Errorf("no current track")
	}
	t := *p.current
	listeners := p.snapshotListeners()
	p.mu.Unlock()

	for _, l := range listeners {
		l.TrackException(t, err)
	}
	return nil
}
