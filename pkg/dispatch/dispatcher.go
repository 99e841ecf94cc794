// Package dispatch routes inbound tool-call events to named render
// targets. It keeps the most recent payload per target; unrecognized
// invocations are dropped silently so schema additions on the remote side
// never crash a deployed client.
package dispatch

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lumen-labs/lumen/pkg/live"
)

// Session is the slice of the live session the dispatcher needs.
type Session interface {
	Subscribe(fn func(live.Event)) (cancel func())
}

// Dispatcher owns the tool-call payload map. Payloads survive session
// swaps: a new session may start with stale targets visible until the
// model overwrites them.
type Dispatcher struct {
	params map[string]string // target name -> argument field
	logger *slog.Logger

	mu        sync.Mutex
	payloads  map[string]string
	listeners map[uuid.UUID]func(target, payload string)
	order     []uuid.UUID
}

// New creates a dispatcher over the fixed declared schema.
func New() *Dispatcher {
	params := make(map[string]string)
	for _, d := range Declarations() {
		params[d.Name] = d.Param
	}
	return &Dispatcher{
		params:    params,
		logger:    slog.Default().With("component", "dispatch"),
		payloads:  make(map[string]string),
		listeners: make(map[uuid.UUID]func(string, string)),
	}
}

// Attach subscribes the dispatcher to the session's events for the
// lifetime of the owning view. The returned detach is synchronous and
// idempotent; after it returns no event can mutate the payload map.
func (d *Dispatcher) Attach(s Session) (detach func()) {
	return s.Subscribe(func(e live.Event) {
		call, ok := e.(*live.ToolCallEvent)
		if !ok {
			return
		}
		d.handleToolCall(call)
	})
}

func (d *Dispatcher) handleToolCall(call *live.ToolCallEvent) {
	type update struct{ target, payload string }
	var updates []update

	d.mu.Lock()
	for _, fc := range call.FunctionCalls {
		param, ok := d.params[fc.Name]
		if !ok {
			// Unknown name: forward-compatible no-op.
			continue
		}
		payload, ok := fc.Args[param].(string)
		if !ok {
			d.logger.Warn("tool call missing declared argument", "name", fc.Name, "param", param)
			continue
		}
		d.payloads[fc.Name] = payload
		updates = append(updates, update{fc.Name, payload})
	}
	fns := make([]func(string, string), 0, len(d.order))
	for _, h := range d.order {
		if fn, ok := d.listeners[h]; ok {
			fns = append(fns, fn)
		}
	}
	d.mu.Unlock()

	for _, u := range updates {
		for _, fn := range fns {
			fn(u.target, u.payload)
		}
	}
}

// Payload returns the most recent payload for a target and whether one
// has been received.
func (d *Dispatcher) Payload(target string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.payloads[target]
	return p, ok
}

// Snapshot copies the current payload map.
func (d *Dispatcher) Snapshot() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]string, len(d.payloads))
	for k, v := range d.payloads {
		out[k] = v
	}
	return out
}

// OnPayload registers a listener invoked after each payload write, in
// registration order. The returned cancel is synchronous and idempotent.
func (d *Dispatcher) OnPayload(fn func(target, payload string)) (cancel func()) {
	handle := uuid.New()
	d.mu.Lock()
	d.listeners[handle] = fn
	d.order = append(d.order, handle)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.listeners, handle)
			for i, h := range d.order {
				if h == handle {
					d.order = append(d.order[:i], d.order[i+1:]...)
					break
				}
			}
			d.mu.Unlock()
		})
	}
}

// Paragraphs splits the prose payload of a target on line breaks for the
// render layer, dropping blank lines.
func (d *Dispatcher) Paragraphs(target string) []string {
	payload, ok := d.Payload(target)
	if !ok {
		return nil
	}
	lines := strings.Split(payload, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
