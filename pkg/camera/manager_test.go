package camera

import (
	"context"
	"errors"
	"testing"
)

// fakeDevice scripts each acquisition attempt in order.
type fakeDevice struct {
	t        *testing.T
	script   []func(Constraints) (*Stream, error)
	requests []Constraints
}

func (d *fakeDevice) Acquire(_ context.Context, c Constraints) (*Stream, error) {
	d.requests = append(d.requests, c)
	if len(d.script) == 0 {
		d.t.Fatalf("unexpected acquisition: %+v", c)
	}
	step := d.script[0]
	d.script = d.script[1:]
	return step(c)
}

func grant(c Constraints) (*Stream, error) {
	return NewStream(c.Facing, NewTrack(nil)), nil
}

func deny(Constraints) (*Stream, error) {
	return nil, errors.New("constraint not satisfiable")
}

func TestSwitchFlipsFacingAndRebinds(t *testing.T) {
	device := &fakeDevice{t: t, script: []func(Constraints) (*Stream, error){grant}}
	surface := &Surface{}
	m := NewManager(device, surface)

	initial := NewStream(FacingUser, NewTrack(nil))
	m.SetStream(initial)

	if err := m.Switch(context.Background()); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	if !initial.Tracks()[0].Stopped() {
		t.Error("previous stream's tracks still running")
	}
	if got := m.Facing(); got != FacingEnvironment {
		t.Errorf("facing = %v, want environment", got)
	}
	if m.Mirrored() {
		t.Error("rear-facing stream must not be mirrored")
	}
	bound := surface.Bound()
	if bound == nil || bound.Facing != FacingEnvironment {
		t.Errorf("surface bound to %+v, want fresh environment stream", bound)
	}
	if bound == initial {
		t.Error("surface still bound to the stopped stream")
	}

	req := device.requests[0]
	if !req.ExactFacing || req.Facing != FacingEnvironment {
		t.Errorf("first request = %+v, want exact environment", req)
	}
	if req.IdealWidth != 1280 || req.IdealHeight != 720 {
		t.Errorf("requested resolution = %dx%d", req.IdealWidth, req.IdealHeight)
	}
}

func TestSwitchFallsBackToBestEffort(t *testing.T) {
	device := &fakeDevice{t: t, script: []func(Constraints) (*Stream, error){deny, grant}}
	surface := &Surface{}
	m := NewManager(device, surface)
	m.SetStream(NewStream(FacingUser, NewTrack(nil)))

	if err := m.Switch(context.Background()); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	if len(device.requests) != 2 {
		t.Fatalf("acquisition attempts = %d, want exact then relaxed", len(device.requests))
	}
	if !device.requests[0].ExactFacing {
		t.Error("first attempt not exact")
	}
	if device.requests[1].ExactFacing {
		t.Error("fallback attempt still exact")
	}
	if device.requests[1].Facing != FacingEnvironment {
		t.Errorf("fallback facing = %v, want requested mode kept", device.requests[1].Facing)
	}
	if surface.Bound() == nil {
		t.Error("surface blank after successful fallback")
	}
	if got := m.Facing(); got != FacingEnvironment {
		t.Errorf("facing = %v, want environment", got)
	}
}

func TestSwitchDoubleFailureLeavesSurfaceBlank(t *testing.T) {
	device := &fakeDevice{t: t, script: []func(Constraints) (*Stream, error){deny, deny}}
	surface := &Surface{}
	m := NewManager(device, surface)
	initial := NewStream(FacingUser, NewTrack(nil))
	m.SetStream(initial)

	if err := m.Switch(context.Background()); err == nil {
		t.Fatal("Switch succeeded despite both attempts failing")
	}

	if surface.Bound() != nil {
		t.Error("surface not blank after double failure")
	}
	if !initial.Tracks()[0].Stopped() {
		t.Error("stopped stream resurrected")
	}
	// The facing flag reflects the attempted mode even though no stream
	// backs it.
	if got := m.Facing(); got != FacingEnvironment {
		t.Errorf("facing = %v, want attempted mode", got)
	}

	// A further switch has no stream to flip from.
	if err := m.Switch(context.Background()); !errors.Is(err, ErrNoActiveStream) {
		t.Errorf("Switch after failure = %v, want ErrNoActiveStream", err)
	}
}

func TestSwitchWithoutStream(t *testing.T) {
	m := NewManager(&fakeDevice{t: t}, &Surface{})
	if err := m.Switch(context.Background()); !errors.Is(err, ErrNoActiveStream) {
		t.Fatalf("Switch = %v, want ErrNoActiveStream", err)
	}
}

func TestSwitchSingleFlight(t *testing.T) {
	surface := &Surface{}
	var m *Manager
	blocked := make(chan error, 1)
	device := &fakeDevice{t: t}
	device.script = []func(Constraints) (*Stream, error){
		func(c Constraints) (*Stream, error) {
			// Overlapping call while the first switch is mid-acquisition.
			blocked <- m.Switch(context.Background())
			return grant(c)
		},
	}
	m = NewManager(device, surface)
	m.SetStream(NewStream(FacingUser, NewTrack(nil)))

	if err := m.Switch(context.Background()); err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if err := <-blocked; !errors.Is(err, ErrSwitchInProgress) {
		t.Errorf("overlapping Switch = %v, want ErrSwitchInProgress", err)
	}
}

func TestReleaseStopsAndClears(t *testing.T) {
	surface := &Surface{}
	m := NewManager(&fakeDevice{t: t}, surface)
	stream := NewStream(FacingUser, NewTrack(nil), NewTrack(nil))
	m.SetStream(stream)

	m.Release()
	m.Release() // idempotent

	for i, track := range stream.Tracks() {
		if !track.Stopped() {
			t.Errorf("track %d still running after Release", i)
		}
	}
	if surface.Bound() != nil {
		t.Error("surface still bound after Release")
	}
}

func TestTrackStopIdempotent(t *testing.T) {
	calls := 0
	track := NewTrack(func() { calls++ })
	track.Stop()
	track.Stop()
	if calls != 1 {
		t.Fatalf("onStop called %d times", calls)
	}
}

func TestIsMobileRuntime(t *testing.T) {
	tests := []struct {
		descriptor string
		want       bool
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", true},
		{"Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", true},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", true},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", false},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMobileRuntime(tt.descriptor); got != tt.want {
			t.Errorf("IsMobileRuntime(%q) = %v, want %v", tt.descriptor, got, tt.want)
		}
	}
}
