package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Init replaces the process logger. format is "json" or "text".
func Init(level string, format string) {
	InitWithWriter(os.Stdout, level, format)
}

func InitWithWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	current.Store(slog.New(handler))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) {
	current.Load().Debug(msg, normalize(args)...)
}

func Info(msg string, args ...any) {
	current.Load().Info(msg, normalize(args)...)
}

func Warn(msg string, args ...any) {
	current.Load().Warn(msg, normalize(args)...)
}

func Error(msg string, args ...any) {
	current.Load().Error(msg, normalize(args)...)
}

// normalize lets callers pass a bare error as the first argument,
// e.g. logger.Error("Repo:Save", err).
func normalize(args []any) []any {
	if len(args) == 0 {
		return args
	}
	if err, ok := args[0].(error); ok {
		return append([]any{"error", err}, args[1:]...)
	}
	return args
}
