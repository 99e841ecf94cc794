// Package live is the client side of the long-lived bidirectional
// generate-content session. It owns the websocket connection, decodes
// inbound frames into typed events, and fans them out to registered
// observers in arrival order.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultConnectTimeout = 15 * time.Second

// Client dials live sessions against one endpoint/key pair.
type Client struct {
	baseURL string
	apiKey  string
	dialer  *websocket.Dialer
	logger  *slog.Logger
}

// NewClient creates a client for the live endpoint. apiKey must not be
// empty; baseURL defaults to the production endpoint when empty.
func NewClient(baseURL, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("live client: api key must not be empty")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		dialer:  websocket.DefaultDialer,
		logger:  slog.Default().With("component", "live"),
	}, nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("live client: invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("live client: base URL must use ws(s) or http(s)")
	}
	u.Path = BidiPath
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the endpoint, sends the setup frame, and waits for the
// remote acknowledgment before returning a running session.
func (c *Client) Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	wsURL, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := c.dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("live dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("live dial failed: %w", err)
	}

	if err := conn.WriteJSON(cfg.setupFrame()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sending session setup: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("reading setup acknowledgment: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	first, err := decodeFrame(payload)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, ok := first.(*SetupCompleteEvent); !ok {
		_ = conn.Close()
		return nil, fmt.Errorf("expected setup acknowledgment, got %q", first.EventType())
	}

	s := &Session{
		conn:   conn,
		done:   make(chan struct{}),
		subs:   make(map[uuid.UUID]*subscription),
		logger: c.logger,
	}
	go s.readLoop()
	c.logger.Info("live session established", "model", cfg.Model)
	return s, nil
}

type subscription struct {
	fn func(Event)
}

// Session is one live websocket session. Events are delivered to
// subscribers from a single read loop, in arrival order, with no
// reordering or batching.
type Session struct {
	conn *websocket.Conn

	done      chan struct{}
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	subMu sync.RWMutex
	subs  map[uuid.UUID]*subscription
	order []uuid.UUID

	errMu sync.Mutex
	err   error

	logger *slog.Logger
}

// Subscribe registers fn for every subsequent event. The returned cancel
// is synchronous and idempotent: once it returns, fn will never be called
// again. Handlers run on the read loop and must not block.
func (s *Session) Subscribe(fn func(Event)) (cancel func()) {
	handle := uuid.New()
	sub := &subscription{fn: fn}

	s.subMu.Lock()
	s.subs[handle] = sub
	s.order = append(s.order, handle)
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			// The write lock cannot be acquired mid-delivery, so return
			// implies no in-flight callback and none to come.
			s.subMu.Lock()
			delete(s.subs, handle)
			for i, h := range s.order {
				if h == handle {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
			s.subMu.Unlock()
		})
	}
}

// SendToolResponse echoes invocation results back to the remote session.
func (s *Session) SendToolResponse(responses []FunctionResponse) error {
	var frame toolResponseFrame
	frame.ToolResponse.FunctionResponses = responses
	return s.sendJSON(frame)
}

// SendRealtimeInput streams media chunks into the session.
func (s *Session) SendRealtimeInput(chunks []MediaChunk) error {
	var frame realtimeInputFrame
	frame.RealtimeInput.MediaChunks = chunks
	return s.sendJSON(frame)
}

func (s *Session) sendJSON(v any) error {
	if s.closed.Load() {
		return fmt.Errorf("live session is closed")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Close closes the websocket and waits for the read loop to drain. It is
// idempotent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(2*time.Second))
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
	<-s.done
	return nil
}

// Err returns the terminal session error, if any, after the session ends.
func (s *Session) Err() error {
	<-s.done
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Session) setErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Session) readLoop() {
	defer close(s.done)

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || s.closed.Load() {
				return
			}
			s.setErr(err)
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		event, err := decodeFrame(data)
		if err != nil {
			s.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}
		s.deliver(event)
	}
}

func (s *Session) deliver(event Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, h := range s.order {
		if sub, ok := s.subs[h]; ok {
			sub.fn(event)
		}
	}
}

func decodeFrame(data []byte) (Event, error) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decoding live frame: %w", err)
	}

	switch {
	case frame.SetupComplete != nil:
		return &SetupCompleteEvent{}, nil
	case frame.ToolCall != nil:
		return &ToolCallEvent{FunctionCalls: frame.ToolCall.FunctionCalls}, nil
	case frame.ToolCallCancellation != nil:
		return &ToolCallCancellationEvent{IDs: frame.ToolCallCancellation.IDs}, nil
	case frame.ServerContent != nil:
		return &ContentEvent{Content: frame.ServerContent}, nil
	case frame.GoAway != nil:
		return &GoAwayEvent{TimeLeft: frame.GoAway.TimeLeft}, nil
	default:
		return &UnknownEvent{Raw: append(json.RawMessage(nil), data...)}, nil
	}
}
