package bridge

import (
	"sync"

	"github.com/gofiber/websocket/v2"

	"github.com/voicewire/go-callbridge/pkg/twilio"
)

// wsMediaSender writes outbound media-stream events to the gateway's
// websocket. A mutex serializes writes because the session's handlers and
// timer callbacks can all emit frames.
type wsMediaSender struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSMediaSender(conn *websocket.Conn) *wsMediaSender {
	return &wsMediaSender{conn: conn}
}

func (w *wsMediaSender) SendMedia(streamSid, payload string) error {
	return w.send(twilio.NewMediaMessage(streamSid, payload))
}

func (w *wsMediaSender) SendMark(streamSid, name string) error {
	return w.send(twilio.NewMarkMessage(streamSid, name))
}

func (w *wsMediaSender) SendClear(streamSid string) error {
	return w.send(twilio.NewClearMessage(streamSid))
}

func (w *wsMediaSender) send(msg *twilio.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}
