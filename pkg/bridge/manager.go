package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/websocket/v2"

	"github.com/voicewire/go-callbridge/pkg/realtime"
	"github.com/voicewire/go-callbridge/pkg/twilio"
)

// Manager owns session lifecycle: it pairs each accepted media connection
// with a fresh speech-service connection and tears both down together.
type Manager struct {
	cfg   Config
	rtCfg realtime.Config
	log   *slog.Logger

	// OnActivity, when set, receives monitoring events from every session.
	OnActivity func(Activity)
}

// NewManager creates a session manager. cfg applies to every call;
// rtCfg is the speech-service connection configuration.
func NewManager(cfg Config, rtCfg realtime.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, rtCfg: rtCfg, log: logger}
}

// HandleStream serves one media-stream websocket connection for its whole
// lifetime. It blocks until the call ends or either side fails.
func (m *Manager) HandleStream(conn *websocket.Conn) {
	defer conn.Close()

	// Open the companion connection first; without it there is no call.
	client, err := realtime.Dial(context.Background(), m.rtCfg)
	if err != nil {
		m.log.Error("failed to open speech service connection", "err", err)
		return
	}

	sess := NewSession(m.cfg, newWSMediaSender(conn), client, m.log)
	if m.OnActivity != nil {
		sess.OnActivity(m.OnActivity)
	}
	sess.OnClose(func() {
		// Closing the media socket unblocks the read loop below.
		conn.Close()
	})
	defer sess.Close()

	m.log.Info("call session opened", "session", sess.ID())
	sess.Start()

	go m.modelLoop(sess, client)

	// Media read loop. Events are applied strictly in arrival order.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			m.log.Info("media stream closed", "session", sess.ID(), "err", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := twilio.Parse(data)
		if err != nil {
			// A single malformed event never terminates the session.
			m.log.Warn("malformed media event discarded",
				"session", sess.ID(), "err", err, "payload", string(data))
			continue
		}

		sess.HandleMediaMessage(msg)
		if msg.Event == twilio.EventStop {
			return
		}
	}
}

// modelLoop reads speech-service events until the connection dies, then
// tears the session down so the media side closes too.
func (m *Manager) modelLoop(sess *Session, client *realtime.Client) {
	defer sess.Close()

	for {
		ev, err := client.ReadEvent()
		if err != nil {
			if errors.Is(err, realtime.ErrMalformed) {
				m.log.Warn("malformed speech service event discarded",
					"session", sess.ID(), "err", err)
				continue
			}
			if !client.Closed() {
				m.log.Info("speech service connection closed",
					"session", sess.ID(), "err", err)
			}
			return
		}
		sess.HandleModelEvent(ev)
	}
}
