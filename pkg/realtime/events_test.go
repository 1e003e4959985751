package realtime

import (
	"errors"
	"testing"
)

func TestDecodeAudioDelta(t *testing.T) {
	raw := `{"type":"response.audio.delta","item_id":"item_42","content_index":0,"delta":"bXVsYXc="}`

	ev, err := decodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if ev.Type != EventAudioDelta {
		t.Errorf("expected audio delta, got %s", ev.Type)
	}
	if ev.ItemID != "item_42" {
		t.Errorf("expected item_42, got %s", ev.ItemID)
	}
	if ev.Delta != "bXVsYXc=" {
		t.Errorf("unexpected delta %q", ev.Delta)
	}
}

func TestDecodeRenamedAudioDelta(t *testing.T) {
	raw := `{"type":"response.output_audio.delta","item_id":"item_9","delta":"bXVsYXc="}`

	ev, err := decodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if ev.Type != EventAudioDelta {
		t.Errorf("renamed delta not normalized, got %s", ev.Type)
	}
}

func TestDecodeResponseDone(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantFailed bool
	}{
		{
			"completed",
			`{"type":"response.done","response":{"id":"resp_1","status":"completed"}}`,
			false,
		},
		{
			"failed with details",
			`{"type":"response.done","response":{"id":"resp_2","status":"failed","status_details":{"error":{"message":"server busy"}}}}`,
			true,
		},
		{
			"cancelled",
			`{"type":"response.done","response":{"id":"resp_3","status":"cancelled"}}`,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := decodeEvent([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decodeEvent() error = %v", err)
			}
			if ev.Type != EventResponseDone {
				t.Fatalf("expected response.done, got %s", ev.Type)
			}
			if ev.Response == nil {
				t.Fatal("expected response status")
			}
			if got := ev.Response.Failed(); got != tt.wantFailed {
				t.Errorf("Failed() = %v, want %v", got, tt.wantFailed)
			}
		})
	}
}

func TestDecodeErrorEvent(t *testing.T) {
	raw := `{"type":"error","error":{"type":"invalid_request_error","code":"bad_item","message":"no such item"}}`

	ev, err := decodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if ev.Type != EventError {
		t.Errorf("expected error event, got %s", ev.Type)
	}
	if ev.Err == nil {
		t.Fatal("expected APIError")
	}
	if ev.Err.Code != "bad_item" {
		t.Errorf("expected code bad_item, got %s", ev.Err.Code)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated json", `{"type":"respo`},
		{"missing type", `{"delta":"abc"}`},
		{"array", `["response.done"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEvent([]byte(tt.raw))
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestDecodeTranscription(t *testing.T) {
	raw := `{"type":"conversation.item.input_audio_transcription.completed","item_id":"item_7","transcript":"book me a table"}`

	ev, err := decodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decodeEvent() error = %v", err)
	}
	if ev.Type != EventTranscriptionDone {
		t.Errorf("expected transcription event, got %s", ev.Type)
	}
	if ev.Transcript != "book me a table" {
		t.Errorf("unexpected transcript %q", ev.Transcript)
	}
}
