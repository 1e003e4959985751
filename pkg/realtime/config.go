package realtime

import (
	"errors"
	"time"
)

const (
	// DefaultURL is the OpenAI Realtime websocket endpoint.
	DefaultURL = "wss://api.openai.com/v1/realtime"

	// DefaultModel is the realtime model used when none is configured.
	DefaultModel = "gpt-4o-realtime-preview-2024-12-17"
)

// Common errors returned by the client.
var (
	ErrMissingAPIKey = errors.New("realtime: missing API key")
	ErrNotConnected  = errors.New("realtime: client not connected")
	ErrMalformed     = errors.New("realtime: malformed event")
)

// Config holds connection parameters for the realtime client.
type Config struct {
	APIKey      string
	URL         string        // defaults to DefaultURL
	Model       string        // defaults to DefaultModel
	DialTimeout time.Duration // defaults to 10s
}

// TurnDetection configures the service's server-side voice activity
// detection. Durations are expressed in milliseconds on the wire.
type TurnDetection struct {
	Threshold         float64       // activation sensitivity 0.0-1.0
	PrefixPadding     time.Duration // audio included before detected speech
	SilenceDuration   time.Duration // silence that ends a caller turn
	CreateResponse    bool          // service creates responses on its own turn detection
	InterruptResponse bool          // service accepts barge-in during playback
}

// SessionConfig is the one-shot session configuration sent after connect.
// Audio in and out is 8kHz μ-law, the telephony wire format, so frames
// pass through the bridge without transcoding.
type SessionConfig struct {
	Voice         string
	Instructions  string
	TurnDetection TurnDetection
	Transcription bool // enable input audio transcription
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
