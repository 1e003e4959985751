// Package realtime provides a websocket client for OpenAI's Realtime API,
// carrying the speech-service side of a bridged phone call. It exposes
// typed commands for the operations the bridge needs and decodes inbound
// events one at a time for the caller's event loop.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client manages the WebSocket connection to the realtime speech service.
// Writes are serialized by an internal mutex; reads belong to a single
// event loop calling ReadEvent.
type Client struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	closed   bool
	closedMu sync.Mutex
}

// Dial connects to the realtime service and returns a client ready for
// session configuration. The caller owns the connection and must Close it.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	header := make(http.Header)
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	ws, _, err := dialer.DialContext(ctx, fmt.Sprintf("%s?model=%s", url, model), header)
	if err != nil {
		return nil, fmt.Errorf("realtime: failed to connect: %w", err)
	}

	return &Client{ws: ws}, nil
}

// Close closes the WebSocket connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closedMu.Lock()
	if c.closed {
		c.closedMu.Unlock()
		return nil
	}
	c.closed = true
	c.closedMu.Unlock()

	return c.ws.Close()
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	return c.closed
}

// ReadEvent blocks until the next inbound event arrives and decodes it.
// A malformed frame returns an error wrapping ErrMalformed; the connection
// is still usable and the caller should report it and keep reading. Any
// other error means the transport is gone.
func (c *Client) ReadEvent() (*Event, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return decodeEvent(data)
}

// UpdateSession sends the session configuration command: voice, codec,
// instructions and turn detection. The bridge sends exactly one of these
// per session, after a short settle delay.
func (c *Client) UpdateSession(cfg SessionConfig) error {
	session := map[string]any{
		"modalities":          []string{"text", "audio"},
		"instructions":        cfg.Instructions,
		"voice":               cfg.Voice,
		"input_audio_format":  "g711_ulaw",
		"output_audio_format": "g711_ulaw",
		"turn_detection": map[string]any{
			"type":                "server_vad",
			"threshold":           cfg.TurnDetection.Threshold,
			"prefix_padding_ms":   int(cfg.TurnDetection.PrefixPadding.Milliseconds()),
			"silence_duration_ms": int(cfg.TurnDetection.SilenceDuration.Milliseconds()),
			"create_response":     cfg.TurnDetection.CreateResponse,
			"interrupt_response":  cfg.TurnDetection.InterruptResponse,
		},
	}
	if cfg.Transcription {
		session["input_audio_transcription"] = map[string]any{
			"model": "whisper-1",
		}
	}

	return c.sendJSON(map[string]any{
		"type":    "session.update",
		"session": session,
	})
}

// AppendAudio forwards one base64 μ-law frame into the input audio buffer.
func (c *Client) AppendAudio(payload string) error {
	return c.sendJSON(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": payload,
	})
}

// CreateResponse asks the model to produce a response. Instructions, when
// non-empty, apply to this response only.
func (c *Client) CreateResponse(instructions string) error {
	msg := map[string]any{"type": "response.create"}
	if instructions != "" {
		msg["response"] = map[string]any{
			"instructions": instructions,
		}
	}
	return c.sendJSON(msg)
}

// TruncateItem cuts a spoken assistant item at audioEnd, discarding the
// audio the caller never heard. Sent on barge-in.
func (c *Client) TruncateItem(itemID string, contentIndex int, audioEnd time.Duration) error {
	return c.sendJSON(map[string]any{
		"type":          "conversation.item.truncate",
		"item_id":       itemID,
		"content_index": contentIndex,
		"audio_end_ms":  audioEnd.Milliseconds(),
	})
}

// CancelResponse interrupts the current response, if any.
func (c *Client) CancelResponse() error {
	return c.sendJSON(map[string]string{
		"type": "response.cancel",
	})
}

// sendJSON sends a JSON message over WebSocket.
func (c *Client) sendJSON(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.ws == nil || c.Closed() {
		return ErrNotConnected
	}

	return c.ws.WriteJSON(v)
}
