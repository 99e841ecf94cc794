package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const (
	preferredWidth  = 1280
	preferredHeight = 720
)

var (
	// ErrNoActiveStream is returned when Switch is called before any
	// stream has been acquired.
	ErrNoActiveStream = errors.New("no active camera stream")

	// ErrSwitchInProgress is returned when a switch overlaps an
	// unfinished one. Switches are single-flight, not queued.
	ErrSwitchInProgress = errors.New("camera switch already in progress")
)

// Manager owns the active capture stream and its binding to the output
// surface. At most one stream is active at a time; switching stops the
// previous stream's tracks before acquiring the replacement so the camera
// device is never held twice.
type Manager struct {
	device  Device
	surface *Surface
	logger  *slog.Logger

	mu        sync.Mutex
	switching bool
	stream    *Stream
	facing    FacingMode
}

// NewManager creates a manager over the given device and surface. The
// initial facing mode is user-facing, matching first acquisition.
func NewManager(device Device, surface *Surface) *Manager {
	return &Manager{
		device:  device,
		surface: surface,
		logger:  slog.Default().With("component", "camera"),
		facing:  FacingUser,
	}
}

// SetStream adopts an externally acquired stream (the first acquisition
// happens outside this manager) and binds it to the surface.
func (m *Manager) SetStream(s *Stream) {
	m.mu.Lock()
	m.stream = s
	if s != nil {
		m.facing = s.Facing
	}
	m.mu.Unlock()
	if s != nil {
		m.surface.Bind(s)
	} else {
		m.surface.Clear()
	}
}

// Facing reports the current facing mode.
func (m *Manager) Facing() FacingMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facing
}

// Mirrored reports whether the rendered stream should be horizontally
// mirrored. Front-facing streams are; rear-facing are not.
func (m *Manager) Mirrored() bool {
	return m.Facing() == FacingUser
}

// Switch flips the facing mode: stop the current tracks, then acquire the
// opposite camera with an exact constraint, relaxing to best-effort on
// failure. If both attempts fail the surface is left blank — the previous
// stream is already stopped and is not resurrected.
func (m *Manager) Switch(ctx context.Context) error {
	m.mu.Lock()
	if m.switching {
		m.mu.Unlock()
		return ErrSwitchInProgress
	}
	if m.stream == nil {
		m.mu.Unlock()
		return ErrNoActiveStream
	}
	m.switching = true
	current := m.stream
	next := m.facing.Opposite()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.switching = false
		m.mu.Unlock()
	}()

	current.Stop()

	m.mu.Lock()
	m.facing = next
	m.mu.Unlock()

	constraints := Constraints{
		Facing:      next,
		ExactFacing: true,
		IdealWidth:  preferredWidth,
		IdealHeight: preferredHeight,
	}

	stream, err := m.device.Acquire(ctx, constraints)
	if err != nil {
		m.logger.Warn("exact-constraint acquisition failed", "facing", next, "error", err)
		constraints.ExactFacing = false
		stream, err = m.device.Acquire(ctx, constraints)
	}
	if err != nil {
		m.mu.Lock()
		m.stream = nil
		m.mu.Unlock()
		m.surface.Clear()
		m.logger.Error("camera switch failed", "facing", next, "error", err)
		return fmt.Errorf("switching camera to %s: %w", next, err)
	}

	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()
	m.surface.Bind(stream)
	m.logger.Info("camera switched", "facing", next)
	return nil
}

// Release stops the active stream and clears the surface, for view
// teardown.
func (m *Manager) Release() {
	m.mu.Lock()
	stream := m.stream
	m.stream = nil
	m.mu.Unlock()
	if stream != nil {
		stream.Stop()
	}
	m.surface.Clear()
}
