// Package config loads the application configuration from the
// environment. The live-session API key is the one required secret;
// everything else has a sensible default.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// GeminiAPIKey authenticates the live session endpoint. Required;
	// startup halts without it.
	GeminiAPIKey string `env:"LUMEN_GEMINI_API_KEY"`

	LiveBaseURL      string `env:"LUMEN_LIVE_BASE_URL" envDefault:"wss://generativelanguage.googleapis.com"`
	Model            string `env:"LUMEN_MODEL" envDefault:"models/gemini-2.0-flash-exp"`
	Voice            string `env:"LUMEN_VOICE" envDefault:"Aoede"`
	ResponseModality string `env:"LUMEN_RESPONSE_MODALITY" envDefault:"audio"`

	// CountryPrefix is the single supported country calling prefix for
	// phone verification, without the plus sign.
	CountryPrefix string `env:"LUMEN_COUNTRY_PREFIX" envDefault:"91"`

	// VerifyBaseURL is the phone-verification service endpoint.
	VerifyBaseURL string `env:"LUMEN_VERIFY_BASE_URL" envDefault:"https://verify.lumen.dev"`

	// DatabaseURL selects the Postgres profile store. Empty falls back to
	// the in-memory store (dev runs and tests).
	DatabaseURL string `env:"LUMEN_DATABASE_URL"`

	// ID token validation for the identity provider.
	TokenAudience string `env:"LUMEN_TOKEN_AUDIENCE" envDefault:"lumen"`
	TokenIssuer   string `env:"LUMEN_TOKEN_ISSUER" envDefault:"lumen-identity"`
	TokenSecret   string `env:"LUMEN_TOKEN_SECRET"`

	// RuntimeDescriptor is the user-agent style string used to decide
	// whether the camera facing toggle is exposed.
	RuntimeDescriptor string `env:"LUMEN_RUNTIME_DESCRIPTOR"`
}

// LoadFromEnv parses and validates the configuration.
func LoadFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return Config{}, fmt.Errorf("LUMEN_GEMINI_API_KEY must be set")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return Config{}, fmt.Errorf("LUMEN_MODEL must not be empty")
	}
	switch cfg.ResponseModality {
	case "audio", "text":
	default:
		return Config{}, fmt.Errorf("LUMEN_RESPONSE_MODALITY must be one of audio|text")
	}
	for _, r := range cfg.CountryPrefix {
		if r < '0' || r > '9' {
			return Config{}, fmt.Errorf("LUMEN_COUNTRY_PREFIX must be digits only")
		}
	}
	if cfg.CountryPrefix == "" {
		return Config{}, fmt.Errorf("LUMEN_COUNTRY_PREFIX must not be empty")
	}

	return cfg, nil
}

// ResponseModalities renders the configured modality in wire form.
func (c Config) ResponseModalities() []string {
	return []string{strings.ToUpper(c.ResponseModality)}
}
