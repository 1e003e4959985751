// Package config provides configuration helpers for go-callbridge commands.
package config

import (
	"fmt"
	"os"
)

// Default server configuration.
const (
	DefaultPort      = "8080"
	DefaultVoice     = "alloy"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultNotesDB   = "callbridge.db"
)

// OpenAIKey returns the OpenAI API key from OPENAI_API_KEY.
// Exits with a usage message if not set.
func OpenAIKey() string {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: OPENAI_API_KEY=sk-... go run ./cmd/callbridge")
		os.Exit(1)
	}
	return key
}

// Port returns the HTTP port from PORT or the default.
func Port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return DefaultPort
}

// PublicHost returns the externally reachable host from PUBLIC_HOST.
// The telephony gateway dials the media-stream websocket against it.
func PublicHost() string {
	return os.Getenv("PUBLIC_HOST")
}

// Voice returns the assistant voice from VOICE or the default.
func Voice() string {
	if v := os.Getenv("VOICE"); v != "" {
		return v
	}
	return DefaultVoice
}

// KnowledgeDir returns the context-text directory from KNOWLEDGE_DIR.
// Empty means no extra context is loaded.
func KnowledgeDir() string {
	return os.Getenv("KNOWLEDGE_DIR")
}

// NotesDB returns the notes database path from NOTES_DB or the default.
func NotesDB() string {
	if p := os.Getenv("NOTES_DB"); p != "" {
		return p
	}
	return DefaultNotesDB
}

// Instructions returns the base assistant instructions from INSTRUCTIONS.
// Empty means the built-in default prompt.
func Instructions() string {
	return os.Getenv("INSTRUCTIONS")
}

// Announcement returns the line spoken by the gateway before the media
// stream connects, from ANNOUNCEMENT.
func Announcement() string {
	return os.Getenv("ANNOUNCEMENT")
}

// ForwardNumber returns the human-fallback number from FORWARD_NUMBER.
// When set, incoming calls get a menu instead of going straight to the
// assistant.
func ForwardNumber() string {
	return os.Getenv("FORWARD_NUMBER")
}

// ManualResponses reports whether the bridge should request model responses
// itself instead of relying on upstream turn detection (RESPONSE_MODE=manual).
func ManualResponses() bool {
	return os.Getenv("RESPONSE_MODE") == "manual"
}

// LogLevel returns the log level from LOG_LEVEL or the default.
func LogLevel() string {
	if l := os.Getenv("LOG_LEVEL"); l != "" {
		return l
	}
	return DefaultLogLevel
}

// LogFormat returns the log output format from LOG_FORMAT ("text" or
// "json") or the default.
func LogFormat() string {
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		return f
	}
	return DefaultLogFormat
}
