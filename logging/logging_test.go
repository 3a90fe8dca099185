package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/solexious/LUMOS-Code/config"
)

// failingWriter is a helper for testing error propagation.
type failingWriter struct{}

func (fw *failingWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func TestTextOutput(t *testing.T) {
	var console bytes.Buffer
	if err := Init(&console, config.LoggingConfig{Level: "DEBUG", Format: "text"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Close() })

	slog.Debug("Debug log", "node", "DEFAULT")

	if !strings.Contains(console.String(), "Debug log") || !strings.Contains(console.String(), "node=DEFAULT") {
		t.Errorf("Expected debug log in text format, got: %s", console.String())
	}
}

func TestFileLogging(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "lumos.log")
	var console bytes.Buffer

	if err := Init(&console, config.LoggingConfig{Level: "INFO", Format: "json", File: logFile}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("Node log", "key", "value")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(content), `"msg":"Node log"`) || !strings.Contains(string(content), `"key":"value"`) {
		t.Errorf("Expected log to be written to file in JSON format, but it wasn't. Got: %s", string(content))
	}
	if !strings.Contains(console.String(), `"msg":"Node log"`) {
		t.Errorf("Expected log to be teed to the console, got: %s", console.String())
	}
}

func TestSetLevel(t *testing.T) {
	var console bytes.Buffer
	if err := Init(&console, config.LoggingConfig{Level: "WARN"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { Close() })

	slog.Info("Hidden log")
	if strings.Contains(console.String(), "Hidden log") {
		t.Errorf("Info log should be filtered at WARN, got: %s", console.String())
	}

	SetLevel("debug")
	slog.Debug("Visible log")
	if !strings.Contains(console.String(), "Visible log") {
		t.Errorf("Debug log should pass after SetLevel, got: %s", console.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestErrorPropagation(t *testing.T) {
	w := &teeWriter{target: &failingWriter{}}
	n, err := w.Write([]byte("payload"))
	if err == nil {
		t.Error("Expected the target error to be returned")
	}
	if n != len("payload") {
		t.Errorf("Expected the full length to be reported, got %d", n)
	}
}

func TestInitBadFile(t *testing.T) {
	err := Init(&bytes.Buffer{}, config.LoggingConfig{File: filepath.Join(t.TempDir(), "missing", "lumos.log")})
	if err == nil {
		t.Fatal("Expected an error for an unwritable log file")
	}
}
