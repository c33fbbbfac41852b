package config

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the process logger. Development gets human-readable text output.
func (c LoggerConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.level()}

	var handler slog.Handler
	if strings.EqualFold(c.Format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func (c LoggerConfig) level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
