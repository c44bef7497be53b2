package config

import "github.com/papercomputeco/rtcheck/pkg/credentials"

const (
	defaultRealtimeURL = "wss://api.openai.com/v1/realtime"
	defaultModel       = "gpt-realtime-mini-2025-10-06"
	defaultOpenTimeout = "30s"

	defaultSessionInstructions  = "You are a cheerful speaking coach helping me verbalize existing notes."
	defaultResponseInstructions = "Give me a short warm-up question about product strategy."

	defaultKafkaTopic = "rtcheck.checks"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Realtime: RealtimeConfig{
			URL:         defaultRealtimeURL,
			Model:       defaultModel,
			OpenTimeout: defaultOpenTimeout,
		},
		Session: SessionConfig{
			Instructions: defaultSessionInstructions,
		},
		Response: ResponseConfig{
			Instructions: defaultResponseInstructions,
		},
		Secrets: SecretsConfig{
			XCConfigPath: credentials.DefaultXCConfigPath,
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
