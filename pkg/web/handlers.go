package web

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/voicewire/go-callbridge/pkg/hub"
	"github.com/voicewire/go-callbridge/pkg/notes"
	"github.com/voicewire/go-callbridge/pkg/twiml"
)

// handleHealth reports liveness for load balancers.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"monitors": s.monitorHub.ClientCount(),
	})
}

// streamURL builds the websocket address the telephony provider should
// connect its media stream to.
func (s *Server) streamURL(c *fiber.Ctx) string {
	host := s.opts.PublicHost
	if host == "" {
		host = c.Hostname()
	}
	return "wss://" + host + "/media-stream"
}

// handleVoiceWebhook answers an incoming call. With a forward number
// configured the caller gets a menu first; otherwise the call goes
// straight to the assistant.
func (s *Server) handleVoiceWebhook(c *fiber.Ctx) error {
	var doc *twiml.Response
	if s.opts.ForwardNumber != "" {
		doc = twiml.Menu(
			"Press 1 to talk to the assistant, or 2 to reach a person.",
			"/twilio/menu", 1)
	} else {
		doc = twiml.ConnectStream(s.streamURL(c), s.opts.Announcement)
	}
	return s.renderTwiML(c, doc)
}

// handleMenuChoice routes the digit collected by the voice menu.
func (s *Server) handleMenuChoice(c *fiber.Ctx) error {
	var doc *twiml.Response
	switch c.FormValue("Digits") {
	case "2":
		if s.opts.ForwardNumber == "" {
			doc = twiml.Reject("No one is available right now. Goodbye.")
		} else {
			doc = twiml.ForwardCall(s.opts.ForwardNumber)
		}
	default:
		doc = twiml.ConnectStream(s.streamURL(c), s.opts.Announcement)
	}
	return s.renderTwiML(c, doc)
}

func (s *Server) renderTwiML(c *fiber.Ctx, doc *twiml.Response) error {
	body, err := doc.Document()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": err.Error()})
	}
	c.Set(fiber.HeaderContentType, "text/xml")
	return c.Send(body)
}

// handleMediaStream hands the call's websocket to the session manager,
// which blocks here for the lifetime of the call.
func (s *Server) handleMediaStream(c *websocket.Conn) {
	s.manager.HandleStream(c)
}

// handleMonitorWS streams live session activity to a dashboard client.
func (s *Server) handleMonitorWS(c *websocket.Conn) {
	// Send the recent buffer so a fresh monitor has context.
	s.activityMu.RLock()
	recent := make([]ActivityEntry, len(s.activity))
	copy(recent, s.activity)
	s.activityMu.RUnlock()
	for _, entry := range recent {
		if err := c.WriteJSON(entry); err != nil {
			c.Close()
			return
		}
	}

	hub.NewClient(s.monitorHub, c).Run()
}

// handleGetActivity returns the recent activity buffer.
func (s *Server) handleGetActivity(c *fiber.Ctx) error {
	s.activityMu.RLock()
	defer s.activityMu.RUnlock()
	return c.JSON(s.activity)
}

// CreateNoteRequest is the request body for saving a note.
type CreateNoteRequest struct {
	CallSid string `json:"call_sid"`
	Body    string `json:"body"`
}

// handleCreateNote saves a note taken during a call.
func (s *Server) handleCreateNote(c *fiber.Ctx) error {
	var req CreateNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Body == "" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "body is required"})
	}

	note, err := s.store.Save(req.CallSid, req.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// handleListNotes returns recent notes, newest first.
func (s *Server) handleListNotes(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	list, err := s.store.List(limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": err.Error()})
	}
	if list == nil {
		list = []notes.Note{}
	}
	return c.JSON(list)
}

// handleGetNote returns one note by id.
func (s *Server) handleGetNote(c *fiber.Ctx) error {
	note, err := s.store.Get(c.Params("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).
				JSON(fiber.Map{"error": "note not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(note)
}
