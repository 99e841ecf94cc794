package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-labs/lumen/pkg/store"
)

// State is the derived authorization state the shell mounts views from.
type State int

const (
	// StateUnresolved means the initial identity check has not completed;
	// nothing is rendered, not even a flicker of the wrong view.
	StateUnresolved State = iota
	StateUnauthenticated
	StatePendingVerification
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateUnauthenticated:
		return "unauthenticated"
	case StatePendingVerification:
		return "pending-verification"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Gate resolves the authorization state from the identity provider's event
// stream and the persisted profile record. Events are processed strictly
// sequentially; the provider guarantees ordering and the gate never
// interleaves two read-persist cycles for the same identifier.
type Gate struct {
	provider Provider
	store    store.Store
	logger   *slog.Logger
	now      func() time.Time

	mu               sync.Mutex
	identity         *Identity
	displayName      string
	needsPhone       bool
	initialCheckDone bool
	listeners        map[uuid.UUID]func(State)
	order            []uuid.UUID
	cancelObserve    func()
}

// NewGate constructs a gate over the given collaborators. Call Start to
// begin observing identity changes.
func NewGate(provider Provider, st store.Store) *Gate {
	return &Gate{
		provider:  provider,
		store:     st,
		logger:    slog.Default().With("component", "gate"),
		now:       time.Now,
		listeners: make(map[uuid.UUID]func(State)),
	}
}

// Start subscribes to the identity provider. The first delivered event
// completes the initial check and moves the state out of StateUnresolved.
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.cancelObserve != nil {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	cancel := g.provider.Observe(func(id *Identity) {
		g.handleChange(ctx, id)
	})

	g.mu.Lock()
	g.cancelObserve = cancel
	g.mu.Unlock()
}

// Close cancels the identity subscription. It is synchronous and
// idempotent; no state change is delivered after Close returns.
func (g *Gate) Close() {
	g.mu.Lock()
	cancel := g.cancelObserve
	g.cancelObserve = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// State derives the current authorization state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

func (g *Gate) stateLocked() State {
	switch {
	case !g.initialCheckDone:
		return StateUnresolved
	case g.identity == nil:
		return StateUnauthenticated
	case g.needsPhone:
		return StatePendingVerification
	default:
		return StateAuthorized
	}
}

// DisplayName returns the resolved display name, empty when signed out.
func (g *Gate) DisplayName() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.displayName
}

// Identity returns the current identity, nil when signed out.
func (g *Gate) Identity() *Identity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.identity
}

// OnStateChange registers a listener invoked on the identity event path
// whenever the derived state may have changed. Listeners run in
// registration order. The returned cancel is synchronous and idempotent.
func (g *Gate) OnStateChange(fn func(State)) (cancel func()) {
	handle := uuid.New()
	g.mu.Lock()
	g.listeners[handle] = fn
	g.order = append(g.order, handle)
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, handle)
			for i, h := range g.order {
				if h == handle {
					g.order = append(g.order[:i], g.order[i+1:]...)
					break
				}
			}
			g.mu.Unlock()
		})
	}
}

// VerificationComplete re-resolves the state after the phone flow finishes.
// The identity is expected to carry the verified number at this point.
func (g *Gate) VerificationComplete(phone string) {
	g.mu.Lock()
	if g.identity != nil {
		g.identity.PhoneNumber = phone
		g.needsPhone = false
	}
	g.mu.Unlock()
	g.notify()
}

func (g *Gate) handleChange(ctx context.Context, id *Identity) {
	if id == nil {
		g.mu.Lock()
		g.identity = nil
		g.displayName = ""
		g.needsPhone = false
		g.initialCheckDone = true
		g.mu.Unlock()
		g.notify()
		return
	}

	name, needsPhone := g.resolveSignIn(ctx, id)

	g.mu.Lock()
	g.identity = id
	g.displayName = name
	g.needsPhone = needsPhone
	g.initialCheckDone = true
	g.mu.Unlock()
	g.notify()
}

// resolveSignIn runs the read-or-create cycle for a signed-in identity.
// Persistence failures never block sign-in: the visitor is admitted as
// authenticated-but-unverified with a plainly derived name.
func (g *Gate) resolveSignIn(ctx context.Context, id *Identity) (name string, needsPhone bool) {
	rec, err := g.store.Get(ctx, id.UID)
	switch {
	case err == nil:
		if touchErr := g.store.Touch(ctx, id.UID, g.now()); touchErr != nil {
			g.logger.Warn("last-login refresh failed", "uid", id.UID, "error", touchErr)
		}
		return rec.DisplayName, rec.PhoneNumber == ""

	case errors.Is(err, store.ErrNotFound):
		return g.firstSignIn(ctx, id)

	default:
		g.logger.Error("profile read failed", "uid", id.UID, "error", err)
		return plainName(id), true
	}
}

func (g *Gate) firstSignIn(ctx context.Context, id *Identity) (name string, needsPhone bool) {
	name, phone := ResolveName(id)
	now := g.now()
	rec := &store.Record{
		UID:         id.UID,
		Email:       id.Email,
		DisplayName: name,
		PhoneNumber: phone,
		PhotoURL:    id.PhotoURL,
		Profile:     id.Profile,
		CreatedAt:   now,
		LastLogin:   now,
	}
	if err := g.store.Set(ctx, rec); err != nil {
		g.logger.Error("first-seen write failed", "uid", id.UID, "error", err)
		return name, true
	}
	g.logger.Info("new user persisted", "uid", id.UID, "verified_phone", phone != "")
	return name, phone == ""
}

func (g *Gate) notify() {
	g.mu.Lock()
	state := g.stateLocked()
	fns := make([]func(State), 0, len(g.order))
	for _, h := range g.order {
		if fn, ok := g.listeners[h]; ok {
			fns = append(fns, fn)
		}
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
