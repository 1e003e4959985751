package bridge

import (
	"errors"
	"time"

	"github.com/voicewire/go-callbridge/pkg/realtime"
)

// Default timing and pacing parameters.
const (
	// DefaultPacerChunks is how many audio chunks are buffered at the
	// start of each response before the first flush.
	DefaultPacerChunks = 5

	// DefaultSettleDelay is how long to wait after connect before sending
	// session configuration, to avoid racing the remote handshake.
	DefaultSettleDelay = 250 * time.Millisecond

	// DefaultGreetingDelay is how long to wait after both sides are ready
	// before requesting the greeting response.
	DefaultGreetingDelay = 100 * time.Millisecond

	// DefaultResponseGrace is how long manual mode waits for a committal
	// signal after speech stops before requesting a response anyway.
	DefaultResponseGrace = 2 * time.Second
)

// DefaultGreetingInstructions is the proactive prompt for the first turn.
const DefaultGreetingInstructions = "Greet the caller warmly, introduce yourself briefly, and ask how you can help."

// DefaultInstructions is the base persona used when the deployment
// provides none of its own.
const DefaultInstructions = "You are a helpful phone assistant. Keep answers short and conversational; the caller hears them spoken aloud."

// Config holds all tunable parameters for a call session.
type Config struct {
	// Session configuration forwarded to the speech service
	Voice        string
	Instructions string

	// GreetingInstructions prompts the proactive first response.
	GreetingInstructions string

	// ManualResponses makes the bridge request responses itself on
	// committal signals instead of relying on upstream turn detection.
	ManualResponses bool

	// Turn detection parameters for the speech service
	TurnDetection realtime.TurnDetection

	// Pacing and timers
	PacerChunks   int
	SettleDelay   time.Duration
	GreetingDelay time.Duration
	ResponseGrace time.Duration
}

// DefaultConfig returns a Config with sensible defaults for telephony.
func DefaultConfig() Config {
	return Config{
		Voice:                "alloy",
		Instructions:         DefaultInstructions,
		GreetingInstructions: DefaultGreetingInstructions,

		TurnDetection: realtime.TurnDetection{
			Threshold:         0.5,
			PrefixPadding:     300 * time.Millisecond,
			SilenceDuration:   500 * time.Millisecond,
			CreateResponse:    true,
			InterruptResponse: true,
		},

		PacerChunks:   DefaultPacerChunks,
		SettleDelay:   DefaultSettleDelay,
		GreetingDelay: DefaultGreetingDelay,
		ResponseGrace: DefaultResponseGrace,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.PacerChunks < 1 {
		return errors.New("bridge: pacer chunk count must be at least 1")
	}
	if c.TurnDetection.Threshold < 0 || c.TurnDetection.Threshold > 1 {
		return errors.New("bridge: turn detection threshold must be between 0 and 1")
	}
	return nil
}

// WithInstructions returns a copy with the session instructions set.
func (c Config) WithInstructions(instructions string) Config {
	c.Instructions = instructions
	return c
}

// WithVoice returns a copy with the assistant voice set.
func (c Config) WithVoice(voice string) Config {
	c.Voice = voice
	return c
}

// WithManualResponses returns a copy with manual response mode set.
// Manual mode disables upstream auto-response creation.
func (c Config) WithManualResponses(manual bool) Config {
	c.ManualResponses = manual
	c.TurnDetection.CreateResponse = !manual
	return c
}

// sessionConfig builds the one-shot speech service configuration.
func (c Config) sessionConfig() realtime.SessionConfig {
	td := c.TurnDetection
	if c.ManualResponses {
		td.CreateResponse = false
	}
	return realtime.SessionConfig{
		Voice:         c.Voice,
		Instructions:  c.Instructions,
		TurnDetection: td,
		Transcription: true,
	}
}
