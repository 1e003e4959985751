// Package twilio defines the Twilio Media Streams websocket vocabulary.
// This is the telephony side of the bridge: framed caller audio in,
// assistant audio, marks and buffer clears out.
package twilio

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Event identifies the type of media-stream message
type Event string

const (
	// Gateway → bridge events
	EventConnected Event = "connected" // protocol handshake
	EventStart     Event = "start"     // stream opened, carries streamSid
	EventMedia     Event = "media"     // one framed audio chunk
	EventMark      Event = "mark"      // playback acknowledgment
	EventStop      Event = "stop"      // stream closed by the gateway

	// Bridge → gateway events (media and mark are bidirectional)
	EventClear Event = "clear" // drop all queued playback audio
)

// Message is the base wrapper for all media-stream messages
type Message struct {
	Event     Event         `json:"event"`
	StreamSid string        `json:"streamSid,omitempty"`
	Start     *StartPayload `json:"start,omitempty"`
	Media     *MediaPayload `json:"media,omitempty"`
	Mark      *MarkPayload  `json:"mark,omitempty"`
}

// StartPayload carries stream identification sent once per call
type StartPayload struct {
	StreamSid   string      `json:"streamSid"`
	AccountSid  string      `json:"accountSid,omitempty"`
	CallSid     string      `json:"callSid,omitempty"`
	Tracks      []string    `json:"tracks,omitempty"`
	MediaFormat MediaFormat `json:"mediaFormat,omitempty"`
}

// MediaFormat describes the audio encoding of the stream
type MediaFormat struct {
	Encoding   string `json:"encoding"`    // "audio/x-mulaw"
	SampleRate int    `json:"sampleRate"`  // 8000
	Channels   int    `json:"channels"`    // 1
}

// MediaPayload carries one base64-encoded audio frame
type MediaPayload struct {
	Track     string `json:"track,omitempty"`
	Chunk     string `json:"chunk,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // milliseconds since start, as a string
	Payload   string `json:"payload"`
}

// MarkPayload names a playback acknowledgment
type MarkPayload struct {
	Name string `json:"name"`
}

// TimestampMS returns the media frame timestamp in milliseconds.
// Twilio sends it as a string; a missing or malformed value yields 0.
func (m *MediaPayload) TimestampMS() int64 {
	if m == nil || m.Timestamp == "" {
		return 0
	}
	ts, err := strconv.ParseInt(m.Timestamp, 10, 64)
	if err != nil || ts < 0 {
		return 0
	}
	return ts
}

// Parse decodes a raw websocket frame into a Message.
func Parse(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("twilio: failed to parse message: %w", err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("twilio: message has no event field")
	}
	return &msg, nil
}

// NewMediaMessage builds an outbound audio frame for the given stream.
// The payload must already be base64-encoded μ-law audio.
func NewMediaMessage(streamSid, payload string) *Message {
	return &Message{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media:     &MediaPayload{Payload: payload},
	}
}

// NewMarkMessage builds a playback-acknowledgment request. The gateway
// echoes the mark back once all audio queued before it has played out.
func NewMarkMessage(streamSid, name string) *Message {
	return &Message{
		Event:     EventMark,
		StreamSid: streamSid,
		Mark:      &MarkPayload{Name: name},
	}
}

// NewClearMessage builds a clear command that drops all audio the gateway
// has queued but not yet played for this stream.
func NewClearMessage(streamSid string) *Message {
	return &Message{
		Event:     EventClear,
		StreamSid: streamSid,
	}
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}
