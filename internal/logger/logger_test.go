package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestColorTextHandlerPrefixesLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h)

	log.Warn("outage window approaching")
	out := buf.String()
	if !strings.Contains(out, "\033[33mWARN\033[0m") {
		t.Fatalf("missing colored level prefix: %q", out)
	}
	if !strings.Contains(out, "outage window approaching") {
		t.Fatalf("missing message: %q", out)
	}
}

func TestColorTextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be filtered at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should pass at warn level")
	}
}

func TestFileHandlerWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "powermand.log")
	h := Config{Level: "debug", File: path}.handler()
	log := slog.New(h)

	log.Info("print paused", "window", "19:00-22:00")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "print paused") {
		t.Fatalf("log file missing entry: %q", data)
	}
	if !strings.Contains(string(data), "window=19:00-22:00") {
		t.Fatalf("log file missing attrs: %q", data)
	}
}

func TestRotationDefaults(t *testing.T) {
	if valOr(0, DefaultMaxSizeMB) != DefaultMaxSizeMB {
		t.Fatal("zero should fall back to default")
	}
	if valOr(-1, DefaultMaxBackups) != DefaultMaxBackups {
		t.Fatal("negative should fall back to default")
	}
	if valOr(25, DefaultMaxAgeDays) != 25 {
		t.Fatal("explicit value should win")
	}
}
