// Package camera manages the lifecycle of the local video capture stream,
// including runtime switching between the user-facing and
// environment-facing cameras with constraint-relaxation fallback.
package camera

import (
	"context"
	"sync"
)

// FacingMode selects which physical camera a stream is sourced from.
type FacingMode string

const (
	FacingUser        FacingMode = "user"
	FacingEnvironment FacingMode = "environment"
)

// Opposite returns the other facing mode.
func (m FacingMode) Opposite() FacingMode {
	if m == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Constraints describe one acquisition request. Audio is never requested
// by this manager.
type Constraints struct {
	Facing      FacingMode
	ExactFacing bool
	IdealWidth  int
	IdealHeight int
}

// Device acquires capture streams. Implementations wrap whatever media
// API the runtime exposes.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (*Stream, error)
}

// Track is one media track of a stream.
type Track struct {
	mu      sync.Mutex
	stopped bool
	onStop  func()
}

// NewTrack creates a track whose Stop invokes onStop once. onStop may be nil.
func NewTrack(onStop func()) *Track {
	return &Track{onStop: onStop}
}

// Stop halts the track. Idempotent.
func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.onStop != nil {
		t.onStop()
	}
}

// Stopped reports whether Stop has been called.
func (t *Track) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Stream is an active capture: a track set plus the facing mode it was
// acquired with.
type Stream struct {
	Facing FacingMode
	tracks []*Track
}

// NewStream creates a stream over the given tracks.
func NewStream(facing FacingMode, tracks ...*Track) *Stream {
	return &Stream{Facing: facing, tracks: tracks}
}

// Tracks returns the stream's track set.
func (s *Stream) Tracks() []*Track {
	return s.tracks
}

// Stop stops every track of the stream.
func (s *Stream) Stop() {
	for _, t := range s.tracks {
		t.Stop()
	}
}

// Surface is the single mutable output binding target. It is rebound,
// never shared, on each successful switch.
type Surface struct {
	mu     sync.Mutex
	stream *Stream
}

// Bind replaces the bound stream.
func (s *Surface) Bind(stream *Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
}

// Clear removes any binding.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = nil
}

// Bound returns the currently bound stream, nil when blank.
func (s *Surface) Bound() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}
