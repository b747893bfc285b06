package logger

import (
	"io"
	"log/slog"
)

// Format selects how New renders records.
type Format int

const (
	// FormatText is slog's key=value text output.
	FormatText Format = iota
	// FormatJSON writes one JSON object per record, the --log-file format.
	FormatJSON
	// FormatPretty is colorized terminal output.
	FormatPretty
)

// Option configures a logger created with New.
type Option func(*config)

// WithFormat picks the output format.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithDebug lowers the level to Debug, which adds the gateway's per-request
// lines and the cache's state transitions.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
			return
		}
		c.level = slog.LevelInfo
	}
}

// WithWriter sets the output. A nil writer keeps the default.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.w = w
		}
	}
}
