package live

import "google.golang.org/genai"

// Wire shapes for the bidirectional generate-content websocket protocol.
// Only the envelopes this client consumes are modeled; unknown server
// frames are surfaced as UnknownEvent and never kill the session.

// BidiPath is the websocket path of the live endpoint. The API key rides
// in the query string.
const BidiPath = "/ws/google.ai.generativelanguage.v1alpha.GenerativeService.BidiGenerateContent"

type setupFrame struct {
	Setup sessionSetup `json:"setup"`
}

type sessionSetup struct {
	Model             string            `json:"model"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []*genai.Tool     `json:"tools,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig *voiceConfig `json:"voiceConfig,omitempty"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig *prebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName,omitempty"`
}

// Content is a role-tagged list of parts, as used for system instructions
// and model turns.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

// FunctionCall is one named invocation inside a tool-call frame.
type FunctionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse echoes an invocation id back with the client's result.
type FunctionResponse struct {
	ID       string         `json:"id,omitempty"`
	Response map[string]any `json:"response,omitempty"`
}

// MediaChunk is one outbound realtime media payload (base64 data).
type MediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ServerContent is an inbound model turn fragment.
type ServerContent struct {
	ModelTurn    *Content `json:"modelTurn,omitempty"`
	TurnComplete bool     `json:"turnComplete,omitempty"`
	Interrupted  bool     `json:"interrupted,omitempty"`
}

type serverFrame struct {
	SetupComplete *struct{} `json:"setupComplete,omitempty"`
	ToolCall      *struct {
		FunctionCalls []FunctionCall `json:"functionCalls,omitempty"`
	} `json:"toolCall,omitempty"`
	ToolCallCancellation *struct {
		IDs []string `json:"ids,omitempty"`
	} `json:"toolCallCancellation,omitempty"`
	ServerContent *ServerContent `json:"serverContent,omitempty"`
	GoAway        *struct {
		TimeLeft string `json:"timeLeft,omitempty"`
	} `json:"goAway,omitempty"`
}

type toolResponseFrame struct {
	ToolResponse struct {
		FunctionResponses []FunctionResponse `json:"functionResponses"`
	} `json:"toolResponse"`
}

type realtimeInputFrame struct {
	RealtimeInput struct {
		MediaChunks []MediaChunk `json:"mediaChunks"`
	} `json:"realtimeInput"`
}
