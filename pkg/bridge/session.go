package bridge

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicewire/go-callbridge/pkg/realtime"
	"github.com/voicewire/go-callbridge/pkg/twilio"
)

// TurnState tracks whose turn the conversation is in.
type TurnState int

const (
	// TurnIdle is the state before the stream starts and after teardown.
	TurnIdle TurnState = iota

	// TurnAwaitingSessionReady means one side of the rendezvous is done:
	// the stream has started or the session is configured, not both.
	TurnAwaitingSessionReady

	// TurnAwaitingGreeting means both sides are ready and the proactive
	// greeting has been scheduled but not yet confirmed.
	TurnAwaitingGreeting

	// TurnModelResponding means the model is producing an answer.
	TurnModelResponding

	// TurnCallerSpeaking means the bridge is waiting on the caller's turn.
	TurnCallerSpeaking
)

// String returns the state name for logging.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnAwaitingSessionReady:
		return "awaiting_session_ready"
	case TurnAwaitingGreeting:
		return "awaiting_greeting"
	case TurnModelResponding:
		return "model_responding"
	case TurnCallerSpeaking:
		return "caller_speaking"
	default:
		return "unknown"
	}
}

// MediaSender delivers outbound events to the telephony media stream.
type MediaSender interface {
	SendMedia(streamSid, payload string) error
	SendMark(streamSid, name string) error
	SendClear(streamSid string) error
}

// ModelConn is the command surface of the speech-service connection the
// session drives. *realtime.Client satisfies it.
type ModelConn interface {
	UpdateSession(cfg realtime.SessionConfig) error
	AppendAudio(payload string) error
	CreateResponse(instructions string) error
	CancelResponse() error
	TruncateItem(itemID string, contentIndex int, audioEnd time.Duration) error
	Close() error
}

// Activity is a monitoring event emitted as the call progresses.
type Activity struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"` // "state", "transcript", "error"
	State     string `json:"state,omitempty"`
	Role      string `json:"role,omitempty"` // "caller" for transcripts
	Detail    string `json:"detail,omitempty"`
}

// Session is the mutable record of one call's progress. All handler
// methods and timer callbacks serialize through a single mutex, so the
// session has exactly one writer at a time regardless of which socket
// delivered the event.
type Session struct {
	mu sync.Mutex

	cfg   Config
	media MediaSender
	model ModelConn
	log   *slog.Logger

	id string

	// Media stream state
	streamSid  string
	mediaClock int64 // milliseconds, monotone non-decreasing

	// Current response state
	responseAnchor int64 // mediaClock when the first audio frame went out
	anchored       bool
	activeItemID   string
	markQueue      []string // playback acks outstanding, FIFO

	// Turn taking
	turnState           TurnState
	sessionConfigured   bool
	greetingIssued      bool
	responseOutstanding bool

	// Audio pacer
	pending    []string // buffered base64 chunks, start of response only
	hasFlushed bool

	// Timers tied to session lifetime
	timers   []*time.Timer
	fallback *time.Timer

	closed  bool
	onClose []func()

	onActivity func(Activity)
}

// NewSession creates the session for one established media connection.
// The model connection must already be open; the media stream may not
// have started yet.
func NewSession(cfg Config, media MediaSender, model ModelConn, logger *slog.Logger) *Session {
	id := uuid.NewString()
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:   cfg,
		media: media,
		model: model,
		log:   logger.With("session", id),
		id:    id,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start schedules the session configuration command after the settle
// delay. Exactly one configuration is sent per session; readiness is
// confirmed by the service's session.updated event.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scheduleLocked(s.cfg.SettleDelay, func() {
		if err := s.model.UpdateSession(s.cfg.sessionConfig()); err != nil {
			s.log.Error("failed to configure speech session", "err", err)
		}
	})
}

// TurnState returns the current turn state.
func (s *Session) TurnState() TurnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnState
}

// MediaClock returns the inbound media timestamp high-water mark in
// milliseconds.
func (s *Session) MediaClock() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaClock
}

// PendingMarks returns how many outbound frames are sent but not yet
// acknowledged as played.
func (s *Session) PendingMarks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markQueue)
}

// OnClose registers a hook run once when the session tears down.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClose = append(s.onClose, fn)
}

// OnActivity registers a hook for monitoring events. The hook is invoked
// outside the session lock.
func (s *Session) OnActivity(fn func(Activity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onActivity = fn
}

// Close tears the session down: stops all timers, closes the model
// connection, and runs the close hooks. Idempotent. After Close, no
// audio or commands are sent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.turnState = TurnIdle
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.fallback = nil
	hooks := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	s.model.Close()
	for _, h := range hooks {
		h()
	}
	s.emit(Activity{SessionID: s.id, Kind: "state", State: "closed"})
}

// HandleMediaMessage applies one inbound media-stream event.
func (s *Session) HandleMediaMessage(msg *twilio.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	switch msg.Event {
	case twilio.EventConnected:
		s.log.Debug("media stream protocol connected")

	case twilio.EventStart:
		if msg.Start == nil {
			s.log.Warn("start event without payload")
			return
		}
		s.handleStartLocked(msg.Start)

	case twilio.EventMedia:
		if msg.Media == nil {
			return
		}
		s.handleMediaLocked(msg.Media)

	case twilio.EventMark:
		s.handleMarkLocked()

	case twilio.EventStop:
		s.log.Info("media stream stopped by gateway")

	default:
		s.log.Warn("unrecognized media event discarded", "event", msg.Event)
	}
}

// HandleModelEvent applies one inbound speech-service event.
func (s *Session) HandleModelEvent(ev *realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	switch ev.Type {
	case realtime.EventSessionCreated:
		s.log.Debug("speech service session created")

	case realtime.EventSessionUpdated:
		s.handleConfiguredLocked()

	case realtime.EventResponseCreated:
		s.handleResponseCreatedLocked()

	case realtime.EventAudioDelta:
		s.handleAudioDeltaLocked(ev)

	case realtime.EventAudioDone:
		// Per-response audio summary; response.done carries the state change.

	case realtime.EventResponseDone:
		s.handleResponseDoneLocked(ev)

	case realtime.EventSpeechStarted:
		s.handleSpeechStartedLocked()

	case realtime.EventSpeechStopped:
		s.handleSpeechStoppedLocked()

	case realtime.EventInputCommitted:
		s.handleCommittedLocked()

	case realtime.EventTranscriptionDone:
		s.handleTranscriptionLocked(ev)

	case realtime.EventError:
		// Reported only; a later response.done or the fallback timer
		// resolves the in-flight turn.
		if ev.Err != nil {
			s.log.Error("speech service error", "code", ev.Err.Code, "message", ev.Err.Message)
		} else {
			s.log.Error("speech service error with no detail")
		}

	default:
		s.log.Debug("unhandled speech service event", "type", ev.Type)
	}
}

// --- Media stream handlers ---

func (s *Session) handleStartLocked(start *twilio.StartPayload) {
	if s.streamSid != "" {
		s.log.Warn("duplicate start event ignored", "streamSid", start.StreamSid)
		return
	}
	s.streamSid = start.StreamSid
	s.mediaClock = 0
	if s.turnState == TurnIdle {
		s.turnState = TurnAwaitingSessionReady
	}
	s.log.Info("media stream started",
		"streamSid", start.StreamSid,
		"callSid", start.CallSid,
		"encoding", start.MediaFormat.Encoding)
	s.maybeGreetLocked()
}

func (s *Session) handleMediaLocked(media *twilio.MediaPayload) {
	// The clock advances even when the upstream link is unusable.
	if ts := media.TimestampMS(); ts > s.mediaClock {
		s.mediaClock = ts
	}

	// Drop frames silently when the model link is down rather than
	// buffering without bound.
	if err := s.model.AppendAudio(media.Payload); err != nil {
		s.log.Debug("inbound frame dropped", "err", err)
	}
}

func (s *Session) handleMarkLocked() {
	if len(s.markQueue) > 0 {
		s.markQueue = s.markQueue[1:]
	}
}

// --- Speech service handlers ---

func (s *Session) handleConfiguredLocked() {
	if s.sessionConfigured {
		return
	}
	s.sessionConfigured = true
	if s.turnState == TurnIdle {
		s.turnState = TurnAwaitingSessionReady
	}
	s.log.Info("speech service session configured")
	s.maybeGreetLocked()
}

// maybeGreetLocked fires the greeting handshake once both the stream has
// started and the session is configured. Whichever condition completes
// second triggers it.
func (s *Session) maybeGreetLocked() {
	if s.greetingIssued || s.streamSid == "" || !s.sessionConfigured {
		return
	}
	s.greetingIssued = true
	s.turnState = TurnAwaitingGreeting
	s.scheduleLocked(s.cfg.GreetingDelay, func() {
		if err := s.model.CreateResponse(s.cfg.GreetingInstructions); err != nil {
			s.log.Error("failed to request greeting", "err", err)
			return
		}
		s.responseOutstanding = true
	})
}

func (s *Session) handleResponseCreatedLocked() {
	s.responseOutstanding = true

	// Reset the pacer and anchor for the new response.
	s.pending = nil
	s.hasFlushed = false
	s.anchored = false
	s.responseAnchor = 0
	s.activeItemID = ""

	s.setStateLocked(TurnModelResponding)
}

func (s *Session) handleAudioDeltaLocked(ev *realtime.Event) {
	if ev.Delta == "" {
		return
	}

	// The anchor is set exactly once per response, on its first chunk.
	if !s.anchored {
		s.responseAnchor = s.mediaClock
		s.anchored = true
	}
	if ev.ItemID != "" {
		s.activeItemID = ev.ItemID
	}

	s.paceChunkLocked(ev.Delta)
}

func (s *Session) handleResponseDoneLocked(ev *realtime.Event) {
	// A short response may end before the pacer's flush threshold;
	// whatever is buffered still has to reach the caller.
	s.flushPendingLocked()

	if ev.Response != nil && ev.Response.Failed() {
		s.log.Error("response ended without completing",
			"status", ev.Response.Status,
			"details", string(ev.Response.StatusDetails))
		s.emit(Activity{SessionID: s.id, Kind: "error", Detail: "response " + ev.Response.Status})
	}

	// A failed response transitions exactly like a successful one, so
	// the session never waits on audio that will not arrive.
	s.responseOutstanding = false
	s.activeItemID = ""
	s.anchored = false
	s.responseAnchor = 0
	s.setStateLocked(TurnCallerSpeaking)
}

// handleSpeechStartedLocked handles barge-in. The interruption is honored
// only when the assistant has audibly started speaking: a response is in
// flight, at least one playback ack is outstanding, and the anchor is set.
// Anything less is a no-op, so playback that never started is never cleared.
func (s *Session) handleSpeechStartedLocked() {
	if s.turnState != TurnModelResponding || len(s.markQueue) == 0 || !s.anchored {
		return
	}

	elapsed := s.mediaClock - s.responseAnchor
	if elapsed < 0 {
		elapsed = 0
	}

	if s.activeItemID != "" {
		if err := s.model.TruncateItem(s.activeItemID, 0, time.Duration(elapsed)*time.Millisecond); err != nil {
			s.log.Error("failed to truncate assistant item", "item", s.activeItemID, "err", err)
		}
	}
	// In manual mode the bridge owns the response lifecycle, so the
	// in-flight response is cancelled explicitly. In automatic mode the
	// service interrupts its own response.
	if s.cfg.ManualResponses && s.responseOutstanding {
		if err := s.model.CancelResponse(); err != nil {
			s.log.Error("failed to cancel in-flight response", "err", err)
		}
	}
	if err := s.media.SendClear(s.streamSid); err != nil {
		s.log.Error("failed to clear playback buffer", "err", err)
	}

	s.markQueue = nil
	s.activeItemID = ""
	s.anchored = false
	s.responseAnchor = 0
	s.responseOutstanding = false
	s.stopFallbackLocked()

	s.log.Info("caller barge-in", "elapsed_ms", elapsed)
	s.setStateLocked(TurnCallerSpeaking)
}

func (s *Session) handleSpeechStoppedLocked() {
	if !s.cfg.ManualResponses {
		return
	}
	// If no committal signal lands within the grace period, request a
	// response anyway so the caller is not left in silence.
	s.stopFallbackLocked()
	s.fallback = s.scheduleLocked(s.cfg.ResponseGrace, func() {
		s.log.Warn("no committal signal within grace period, requesting response")
		s.maybeRespondLocked()
	})
}

func (s *Session) handleCommittedLocked() {
	if !s.cfg.ManualResponses {
		return
	}
	s.stopFallbackLocked()
	s.maybeRespondLocked()
}

func (s *Session) handleTranscriptionLocked(ev *realtime.Event) {
	if ev.Transcript != "" {
		s.log.Info("caller transcript", "text", ev.Transcript)
		s.emit(Activity{SessionID: s.id, Kind: "transcript", Role: "caller", Detail: ev.Transcript})
	}
	if !s.cfg.ManualResponses {
		return
	}
	s.stopFallbackLocked()
	s.maybeRespondLocked()
}

// maybeRespondLocked requests a model response unless one is already
// outstanding. At most one response is in flight per session.
func (s *Session) maybeRespondLocked() {
	if s.responseOutstanding || s.closed {
		return
	}
	if err := s.model.CreateResponse(""); err != nil {
		s.log.Error("failed to request response", "err", err)
		return
	}
	s.responseOutstanding = true
}

// --- Audio pacer ---

// paceChunkLocked delivers one outbound audio chunk, buffering the first
// few chunks of each response so playback does not start choppy.
func (s *Session) paceChunkLocked(payload string) {
	if s.hasFlushed {
		s.sendFrameLocked(payload)
		return
	}

	s.pending = append(s.pending, payload)
	if len(s.pending) >= s.cfg.PacerChunks {
		s.flushPendingLocked()
	}
}

// flushPendingLocked sends all buffered chunks back-to-back and switches
// the pacer to passthrough for the rest of the response.
func (s *Session) flushPendingLocked() {
	if s.hasFlushed && len(s.pending) == 0 {
		return
	}
	s.hasFlushed = true
	for _, payload := range s.pending {
		s.sendFrameLocked(payload)
	}
	s.pending = nil
}

// sendFrameLocked sends one media frame paired with a playback-ack mark.
func (s *Session) sendFrameLocked(payload string) {
	if s.streamSid == "" {
		return
	}
	if err := s.media.SendMedia(s.streamSid, payload); err != nil {
		s.log.Debug("outbound frame dropped", "err", err)
		return
	}
	name := uuid.NewString()
	if err := s.media.SendMark(s.streamSid, name); err != nil {
		s.log.Debug("mark dropped", "err", err)
		return
	}
	s.markQueue = append(s.markQueue, name)
}

// --- Timers ---

// scheduleLocked arms a timer tied to the session lifetime. The callback
// runs under the session lock and is skipped entirely after teardown.
// Fired timers remove themselves so the slice does not grow with every
// caller turn on a long call.
func (s *Session) scheduleLocked(d time.Duration, fn func()) *time.Timer {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.reapTimerLocked(t)
		if s.closed {
			return
		}
		fn()
	})
	s.timers = append(s.timers, t)
	return t
}

func (s *Session) reapTimerLocked(t *time.Timer) {
	for i, o := range s.timers {
		if o == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

func (s *Session) stopFallbackLocked() {
	if s.fallback != nil {
		s.fallback.Stop()
		s.reapTimerLocked(s.fallback)
		s.fallback = nil
	}
}

// --- Monitoring ---

func (s *Session) setStateLocked(state TurnState) {
	if s.turnState == state {
		return
	}
	s.turnState = state
	s.log.Debug("turn state", "state", state.String())
	s.emit(Activity{SessionID: s.id, Kind: "state", State: state.String()})
}

// emit invokes the activity hook without requiring the session lock;
// safe to call locked or unlocked because the hook itself must not call
// back into the session.
func (s *Session) emit(a Activity) {
	fn := s.onActivity
	if fn != nil {
		fn(a)
	}
}
