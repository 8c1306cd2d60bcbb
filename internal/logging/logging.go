// Package logging builds the process logger: tint-formatted slog output on
// stderr, optionally mirrored to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level     string
	File      string
	MaxSizeMB int
}

// New returns the logger and a close func for the rotating file, if any.
func New(opts Options) (*slog.Logger, func() error) {
	var (
		w       io.Writer = os.Stderr
		noColor bool
		closer  = func() error { return nil }
	)

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: 3,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stderr, rotator)
		noColor = true
		closer = rotator.Close
	}

	return newWithWriter(w, ParseLevel(opts.Level), noColor), closer
}

func newWithWriter(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
