// Package web exposes the HTTP surface of the bridge: the telephony
// webhook that answers incoming calls, the media-stream websocket those
// calls connect to, a live monitor feed, and a small notes API.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/voicewire/go-callbridge/pkg/bridge"
	"github.com/voicewire/go-callbridge/pkg/hub"
	"github.com/voicewire/go-callbridge/pkg/notes"
)

// ActivityEntry is one monitoring event with the time it was recorded.
type ActivityEntry struct {
	Time string `json:"time"`
	bridge.Activity
}

// Options configure the HTTP server.
type Options struct {
	Port string

	// PublicHost overrides the host used when building the media-stream
	// URL for the telephony webhook. Empty means use the request host.
	PublicHost string

	// Announcement is spoken by the provider before the stream connects.
	Announcement string

	// ForwardNumber, when set, adds a menu that lets the caller reach a
	// human instead of the assistant.
	ForwardNumber string
}

// Server is the bridge's HTTP and websocket front end.
type Server struct {
	app  *fiber.App
	opts Options

	manager *bridge.Manager
	store   *notes.Store

	// Activity buffer (last 500 entries)
	activity   []ActivityEntry
	activityMu sync.RWMutex

	// Hub for monitor websocket broadcast
	monitorHub *hub.Hub
}

// NewServer wires the routes and returns a server ready to Start.
// store may be nil, which disables the notes API.
func NewServer(opts Options, manager *bridge.Manager, store *notes.Store) *Server {
	s := &Server{
		opts:       opts,
		manager:    manager,
		store:      store,
		activity:   make([]ActivityEntry, 0, 500),
		monitorHub: hub.New("monitor"),
	}

	// Every session reports through the same funnel.
	manager.OnActivity = s.RecordActivity

	app := fiber.New(fiber.Config{
		AppName:               "callbridge",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	// Telephony webhooks
	app.Post("/twilio/voice", s.handleVoiceWebhook)
	app.Post("/twilio/menu", s.handleMenuChoice)

	// API routes
	api := app.Group("/api")
	api.Get("/activity", s.handleGetActivity)
	if store != nil {
		api.Post("/notes", s.handleCreateNote)
		api.Get("/notes", s.handleListNotes)
		api.Get("/notes/:id", s.handleGetNote)
	}

	// WebSocket upgrade middleware
	upgrade := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
	app.Use("/media-stream", upgrade)
	app.Use("/ws", upgrade)

	// WebSocket routes
	app.Get("/media-stream", websocket.New(s.handleMediaStream))
	app.Get("/ws/monitor", websocket.New(s.handleMonitorWS))

	s.app = app
	return s
}

// Start runs the hub and listens on the configured port. It blocks.
func (s *Server) Start() error {
	go s.monitorHub.Run()
	return s.app.Listen(":" + s.opts.Port)
}

// RecordActivity buffers a session event and broadcasts it to monitors.
func (s *Server) RecordActivity(a bridge.Activity) {
	entry := ActivityEntry{
		Time:     time.Now().Format("15:04:05"),
		Activity: a,
	}

	s.activityMu.Lock()
	s.activity = append(s.activity, entry)
	if len(s.activity) > 500 {
		s.activity = s.activity[1:]
	}
	s.activityMu.Unlock()

	s.monitorHub.BroadcastJSON(entry)
}

// Shutdown gracefully stops the server, waiting up to the given timeout
// for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
