package live

import "encoding/json"

// Event is the interface for all inbound session events.
type Event interface {
	// EventType returns the event type string for logging and routing.
	EventType() string
}

// SetupCompleteEvent is emitted when the remote end acknowledges the
// session configuration.
type SetupCompleteEvent struct{}

func (e *SetupCompleteEvent) EventType() string { return "setupcomplete" }

// ToolCallEvent carries the function invocations of one tool-call frame,
// in the order the remote session emitted them.
type ToolCallEvent struct {
	FunctionCalls []FunctionCall
}

func (e *ToolCallEvent) EventType() string { return "toolcall" }

// ToolCallCancellationEvent asks the client to abandon in-flight
// invocations by id.
type ToolCallCancellationEvent struct {
	IDs []string
}

func (e *ToolCallCancellationEvent) EventType() string { return "toolcallcancellation" }

// ContentEvent is an inbound model turn fragment.
type ContentEvent struct {
	Content *ServerContent
}

func (e *ContentEvent) EventType() string { return "content" }

// GoAwayEvent warns that the remote end will close the connection soon.
type GoAwayEvent struct {
	TimeLeft string
}

func (e *GoAwayEvent) EventType() string { return "goaway" }

// UnknownEvent wraps a frame this client does not model. Ignored by all
// built-in consumers.
type UnknownEvent struct {
	Raw json.RawMessage
}

func (e *UnknownEvent) EventType() string { return "unknown" }
