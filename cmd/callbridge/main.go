// Command callbridge runs the phone-assistant bridge: it answers
// telephony webhooks, accepts media-stream websockets, and relays each
// call to the realtime speech service.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voicewire/go-callbridge/internal/config"
	"github.com/voicewire/go-callbridge/internal/log"
	"github.com/voicewire/go-callbridge/pkg/bridge"
	"github.com/voicewire/go-callbridge/pkg/knowledge"
	"github.com/voicewire/go-callbridge/pkg/notes"
	"github.com/voicewire/go-callbridge/pkg/realtime"
	"github.com/voicewire/go-callbridge/pkg/web"
)

func main() {
	port := flag.String("port", config.Port(), "HTTP listen port")
	logLevel := flag.String("log-level", config.LogLevel(), "log level (debug, info, warn, error)")
	flag.Parse()

	log.Init(*logLevel, config.LogFormat())

	apiKey := config.OpenAIKey()

	cfg := bridge.DefaultConfig().
		WithVoice(config.Voice()).
		WithManualResponses(config.ManualResponses())

	base := cfg.Instructions
	if v := config.Instructions(); v != "" {
		base = v
	}
	instructions, err := knowledge.Load(base, config.KnowledgeDir())
	if err != nil {
		log.Error("failed to load knowledge directory", "err", err)
		os.Exit(1)
	}
	cfg = cfg.WithInstructions(instructions)

	store, err := notes.Open(config.NotesDB())
	if err != nil {
		log.Error("failed to open notes database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	manager := bridge.NewManager(cfg, realtime.Config{APIKey: apiKey}, log.L())

	server := web.NewServer(web.Options{
		Port:          *port,
		PublicHost:    config.PublicHost(),
		Announcement:  config.Announcement(),
		ForwardNumber: config.ForwardNumber(),
	}, manager, store)

	go func() {
		log.Info("callbridge listening", "port", *port)
		if err := server.Start(); err != nil {
			log.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("shutting down...")
	if err := server.Shutdown(5 * time.Second); err != nil {
		log.Error("shutdown error", "err", err)
	}
}
