package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/voicewire/go-callbridge/pkg/bridge"
	"github.com/voicewire/go-callbridge/pkg/notes"
	"github.com/voicewire/go-callbridge/pkg/realtime"
)

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store, err := notes.Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := bridge.NewManager(bridge.DefaultConfig(), realtime.Config{APIKey: "test"}, logger)
	return NewServer(opts, manager, store)
}

func TestVoiceWebhookConnectsStream(t *testing.T) {
	s := newTestServer(t, Options{Port: "0", PublicHost: "bridge.example.com"})

	req, _ := http.NewRequest(http.MethodPost, "/twilio/voice", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/xml") {
		t.Errorf("content type = %q", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `url="wss://bridge.example.com/media-stream"`) {
		t.Errorf("webhook response missing stream URL:\n%s", body)
	}
}

func TestVoiceWebhookServesMenuWhenForwardingConfigured(t *testing.T) {
	s := newTestServer(t, Options{Port: "0", ForwardNumber: "+15550001111"})

	req, _ := http.NewRequest(http.MethodPost, "/twilio/voice", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<Gather") {
		t.Errorf("expected a menu, got:\n%s", body)
	}
}

func TestMenuChoiceForwardsCall(t *testing.T) {
	s := newTestServer(t, Options{Port: "0", ForwardNumber: "+15550001111"})

	form := url.Values{"Digits": {"2"}}
	req, _ := http.NewRequest(http.MethodPost, "/twilio/menu", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "<Dial>+15550001111</Dial>") {
		t.Errorf("expected call forwarding, got:\n%s", body)
	}
}

func TestNotesAPI(t *testing.T) {
	s := newTestServer(t, Options{Port: "0"})

	req, _ := http.NewRequest(http.MethodPost, "/api/notes",
		strings.NewReader(`{"call_sid":"CA1","body":"call me back"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}

	var created notes.Note
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created note: %v", err)
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/notes/"+created.ID, nil)
	resp2, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp2.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, "/api/notes", nil)
	resp3, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp3.Body.Close()
	var list []notes.Note
	if err := json.NewDecoder(resp3.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Body != "call me back" {
		t.Errorf("list = %+v", list)
	}
}

func TestCreateNoteRejectsEmptyBody(t *testing.T) {
	s := newTestServer(t, Options{Port: "0"})

	req, _ := http.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetMissingNote(t *testing.T) {
	s := newTestServer(t, Options{Port: "0"})

	req, _ := http.NewRequest(http.MethodGet, "/api/notes/nope", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestActivityBufferCapped(t *testing.T) {
	s := newTestServer(t, Options{Port: "0"})

	for i := 0; i < 600; i++ {
		s.RecordActivity(bridge.Activity{SessionID: "s", Kind: "state", State: "responding"})
	}

	s.activityMu.RLock()
	n := len(s.activity)
	s.activityMu.RUnlock()
	if n != 500 {
		t.Errorf("activity buffer = %d entries, want 500", n)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{Port: "0"})

	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
