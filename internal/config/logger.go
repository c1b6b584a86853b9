package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger and makes it the slog default.
// Production logs JSON at info; development adds source locations and debug.
func NewLogger(w io.Writer, production bool) *slog.Logger {
	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       slog.LevelDebug,
			ReplaceAttr: replaceTimeAttr,
			AddSource:   true,
		})
	}

	logger := slog.New(handler).With(slog.String("service", "endoscan"))
	slog.SetDefault(logger)
	return logger
}

func replaceTimeAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String(slog.TimeKey, a.Value.Time().UTC().Format("2006-01-02 15:04:05.000"))
	}
	return a
}
