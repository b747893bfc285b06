// Package logger builds the *slog.Logger every memdeck component takes.
//
// Commands log to the terminal through the charmbracelet/log handler and,
// with --log-file, tee the same records to a JSON file that "memdeck logs"
// reads back. Libraries never build their own logger; they fall back to Nop.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	format Format
	w      io.Writer
}

// New creates a *slog.Logger configured by opts. Without options it writes
// Info and above as slog text to stderr, leaving stdout to command output.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo, w: os.Stderr}
	for _, opt := range opts {
		opt(c)
	}

	switch c.format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(c.w, &slog.HandlerOptions{Level: c.level}))
	case FormatPretty:
		return slog.New(charmlog.NewWithOptions(c.w, charmlog.Options{
			Level:           charmLevel(c.level),
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		}))
	default:
		return slog.New(slog.NewTextHandler(c.w, &slog.HandlerOptions{Level: c.level}))
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func charmLevel(level slog.Level) charmlog.Level {
	switch {
	case level <= slog.LevelDebug:
		return charmlog.DebugLevel
	case level >= slog.LevelError:
		return charmlog.ErrorLevel
	case level >= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.InfoLevel
	}
}
