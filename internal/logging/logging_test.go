package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, slog.LevelWarn, true)

	logger.Info("quiet")
	logger.Warn("temperature above threshold", "temperature", 40.0)

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info line written at warn level: %q", out)
	}
	if !strings.Contains(out, "temperature above threshold") || !strings.Contains(out, "temperature=40") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.log")
	logger, closeFn := New(Options{Level: "info", File: path, MaxSizeMB: 1})

	logger.Info("reading received", "temperature", 21.5)
	if err := closeFn(); err != nil {
		t.Fatalf("close error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "reading received") {
		t.Errorf("log file = %q, want the record", data)
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Error("log file contains colour escapes")
	}
}
