package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"warn", "warn", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"padded", " trace ", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Debug("hidden")
	logger.Info("shown", "session", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "session=abc") {
		t.Errorf("expected info message with attrs, got %q", out)
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)

	logger.Log(context.Background(), LevelTrace, "snapshot", "processed", 2500)

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("expected TRACE level label, got %q", out)
	}
	if !strings.Contains(out, "processed=2500") {
		t.Errorf("expected attribute in output, got %q", out)
	}
}
