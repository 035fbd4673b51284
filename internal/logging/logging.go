package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dyike/CortexFolio/config"
)

// New builds the root logger. Debug mode writes human-readable console
// output; otherwise each line is a JSON object.
func New(cfg *config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

func NewWithWriter(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("app", "cortexfolio").
		Logger()
}
