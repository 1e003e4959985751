package log

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestNewHandlerFormat(t *testing.T) {
	tests := []struct {
		format   string
		wantJSON bool
	}{
		{"json", true},
		{"text", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run("format="+tt.format, func(t *testing.T) {
			h := newHandler(os.Stdout, "info", tt.format)
			_, isJSON := h.(*slog.JSONHandler)
			if isJSON != tt.wantJSON {
				t.Errorf("newHandler(%q) json = %v, want %v", tt.format, isJSON, tt.wantJSON)
			}
		})
	}
}

func TestNewHandlerLevel(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			h := newHandler(os.Stdout, tt.level, "text")
			if !h.Enabled(context.Background(), tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if h.Enabled(context.Background(), tt.muted) {
				t.Errorf("level %s should be muted", tt.muted)
			}
		})
	}
}
