package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/solexious/LUMOS-Code/config"
)

// teeWriter is a thread-safe writer that copies everything written to the
// console target into an optional log file.
type teeWriter struct {
	mu     sync.Mutex
	target io.Writer
	file   *os.File
}

func (w *teeWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	if w.target != nil {
		if _, err := w.target.Write(p); err != nil {
			firstErr = err
		}
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var (
	writer = &teeWriter{target: os.Stderr}
	level  = new(slog.LevelVar)
)

// ParseLevel maps DEBUG, INFO, WARN and ERROR to slog levels, anything else
// is INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Init installs the default slog logger writing to target and, if
// conf.File is set, appending to that file. The format is "json" or text.
func Init(target io.Writer, conf config.LoggingConfig) error {
	if err := Close(); err != nil {
		return err
	}

	writer.mu.Lock()
	writer.target = target
	if conf.File != "" {
		file, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			writer.mu.Unlock()
			return errors.Wrapf(err, "can't open log file %s", conf.File)
		}
		writer.file = file
	}
	writer.mu.Unlock()

	level.Set(ParseLevel(conf.Level))
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(conf.Format) == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// SetLevel changes the level of the installed logger, used when a reloaded
// configuration changes Logging.Level.
func SetLevel(levelStr string) {
	newLevel := ParseLevel(levelStr)
	if level.Level() != newLevel {
		level.Set(newLevel)
		slog.Info("Log level changed", "level", newLevel.String())
	}
}

// Close closes the log file, if any.
func Close() error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if writer.file == nil {
		return nil
	}
	err := writer.file.Close()
	writer.file = nil
	return err
}
