// Package app is the application shell: it composes the identity gate,
// the live session view, the tool-call dispatcher, and the camera manager,
// and mounts exactly one top-level view per authorization state. All state
// is held by the explicitly constructed App; there are no process-wide
// singletons.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lumen-labs/lumen/pkg/auth"
)

// Views holds the mountable view per authorization state. StateUnresolved
// mounts nothing.
type Views struct {
	SignIn  View
	Verify  View
	Session View
}

// App is the shell with an explicit lifecycle: Initialize starts the
// identity observation, Teardown unwinds in reverse order.
type App struct {
	gate   *auth.Gate
	views  Views
	logger *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	mounted    View
	state      auth.State
	cancelGate func()
	started    bool
}

// New assembles the shell. Call Initialize to start it.
func New(gate *auth.Gate, views Views) *App {
	return &App{
		gate:   gate,
		views:  views,
		logger: slog.Default().With("component", "app"),
		state:  auth.StateUnresolved,
	}
}

// Initialize subscribes to authorization-state changes and starts the
// gate. The first identity event resolves the initial check and mounts
// the first view.
func (a *App) Initialize(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.ctx = ctx
	a.mu.Unlock()

	a.cancelGate = a.gate.OnStateChange(a.apply)
	a.gate.Start(ctx)
	a.apply(a.gate.State())
}

// Teardown unmounts the current view and stops observing the gate.
// Idempotent.
func (a *App) Teardown() {
	a.mu.Lock()
	cancel := a.cancelGate
	a.cancelGate = nil
	mounted := a.mounted
	a.mounted = nil
	a.state = auth.StateUnresolved
	a.started = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.gate.Close()
	if mounted != nil {
		mounted.Unmount()
	}
}

// State reports the authorization state of the currently mounted view.
func (a *App) State() auth.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Mounted returns the currently mounted view, nil while unresolved.
func (a *App) Mounted() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted
}

// apply transitions the mounted view to match the authorization state.
// The previous view is fully unmounted before the next one mounts, so a
// session swap can never leak a dispatcher subscription or a camera
// stream.
func (a *App) apply(state auth.State) {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	next := a.viewFor(state)
	if state == a.state && a.mounted == next {
		a.mu.Unlock()
		return
	}
	prev := a.mounted
	a.state = state
	a.mounted = next
	ctx := a.ctx
	a.mu.Unlock()

	if prev != nil {
		prev.Unmount()
	}
	if next != nil {
		if err := next.Mount(ctx); err != nil {
			a.logger.Error("view mount failed", "state", state.String(), "error", err)
			a.mu.Lock()
			if a.mounted == next {
				a.mounted = nil
			}
			a.mu.Unlock()
		}
	}
	a.logger.Info("authorization state applied", "state", state.String())
}

func (a *App) viewFor(state auth.State) View {
	switch state {
	case auth.StateUnauthenticated:
		return a.views.SignIn
	case auth.StatePendingVerification:
		return a.views.Verify
	case auth.StateAuthorized:
		return a.views.Session
	default:
		return nil
	}
}
