// Package observability provides structured logging for the application.
package observability

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// Component returns a logger tagged with a component name, for the
// long-lived pieces (docstore watchers, views, projectors) that log
// outside of a request scope.
func Component(name string) *slog.Logger {
	return GlobalLogger.With(slog.String("component", name))
}
