package realtime

import (
	"encoding/json"
	"fmt"
)

// EventType identifies an inbound realtime event.
type EventType string

const (
	EventSessionCreated       EventType = "session.created"
	EventSessionUpdated       EventType = "session.updated"
	EventResponseCreated      EventType = "response.created"
	EventAudioDelta           EventType = "response.audio.delta"
	EventAudioDone            EventType = "response.audio.done"
	EventResponseDone         EventType = "response.done"
	EventSpeechStarted        EventType = "input_audio_buffer.speech_started"
	EventSpeechStopped        EventType = "input_audio_buffer.speech_stopped"
	EventInputCommitted       EventType = "input_audio_buffer.committed"
	EventTranscriptionDone    EventType = "conversation.item.input_audio_transcription.completed"
	EventError                EventType = "error"
)

// Event is one decoded inbound message from the speech service.
// Only the fields relevant to the event type are populated.
type Event struct {
	Type EventType

	// Audio delta fields
	ItemID string // assistant conversation item producing the audio
	Delta  string // base64 audio chunk

	// Transcription
	Transcript string

	// Response lifecycle
	Response *ResponseStatus

	// Error events
	Err *APIError
}

// ResponseStatus summarizes a response.created or response.done event.
type ResponseStatus struct {
	ID            string
	Status        string // "in_progress", "completed", "failed", "cancelled", "incomplete"
	StatusDetails json.RawMessage
}

// Failed reports whether the response ended without completing.
func (r *ResponseStatus) Failed() bool {
	return r != nil && r.Status != "" && r.Status != "completed" && r.Status != "in_progress"
}

// APIError is an error event reported by the speech service.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("realtime: api error %s: %s", e.Code, e.Message)
}

// wireEvent is the superset shape used to decode inbound frames.
type wireEvent struct {
	Type       string          `json:"type"`
	ItemID     string          `json:"item_id,omitempty"`
	Delta      string          `json:"delta,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	Response   *wireResponse   `json:"response,omitempty"`
	Error      *APIError       `json:"error,omitempty"`
}

type wireResponse struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	StatusDetails json.RawMessage `json:"status_details,omitempty"`
}

// decodeEvent parses a raw frame into an Event. An unparseable frame or a
// frame without a type yields ErrMalformed wrapped with the payload so the
// caller can report it and keep going.
func decodeEvent(data []byte) (*Event, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, string(data))
	}
	if we.Type == "" {
		return nil, fmt.Errorf("%w: missing type: %s", ErrMalformed, string(data))
	}

	// Newer API revisions renamed the audio delta events; accept both.
	switch we.Type {
	case "response.output_audio.delta":
		we.Type = string(EventAudioDelta)
	case "response.output_audio.done":
		we.Type = string(EventAudioDone)
	}

	ev := &Event{
		Type:       EventType(we.Type),
		ItemID:     we.ItemID,
		Delta:      we.Delta,
		Transcript: we.Transcript,
		Err:        we.Error,
	}
	if we.Response != nil {
		ev.Response = &ResponseStatus{
			ID:            we.Response.ID,
			Status:        we.Response.Status,
			StatusDetails: we.Response.StatusDetails,
		}
	}
	return ev, nil
}
