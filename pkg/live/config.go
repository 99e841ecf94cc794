package live

import (
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultBaseURL is the production live endpoint.
	DefaultBaseURL = "wss://generativelanguage.googleapis.com"

	DefaultModel = "models/gemini-2.0-flash-exp"
	DefaultVoice = "Aoede"
)

// SessionConfig is everything sent in the setup frame before any tool
// calls can arrive: model, response modality, voice, system instruction,
// and the declared tool schema.
type SessionConfig struct {
	Model              string
	ResponseModalities []string
	VoiceName          string
	SystemInstruction  string
	Tools              []*genai.Tool
}

func (c SessionConfig) validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("session config: model must not be empty")
	}
	return nil
}

func (c SessionConfig) setupFrame() setupFrame {
	setup := sessionSetup{
		Model: c.Model,
		Tools: c.Tools,
	}

	if len(c.ResponseModalities) > 0 || c.VoiceName != "" {
		gc := &generationConfig{ResponseModalities: c.ResponseModalities}
		if c.VoiceName != "" {
			gc.SpeechConfig = &speechConfig{
				VoiceConfig: &voiceConfig{
					PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: c.VoiceName},
				},
			}
		}
		setup.GenerationConfig = gc
	}

	if c.SystemInstruction != "" {
		setup.SystemInstruction = &Content{Parts: []Part{{Text: c.SystemInstruction}}}
	}

	return setupFrame{Setup: setup}
}
