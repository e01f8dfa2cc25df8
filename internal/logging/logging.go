package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 5
	maxLogAgeDays = 14
)

// Init installs a JSON slog default. With a log file, output is also written
// to a rotating file next to console.
func Init(level, file string, console io.Writer) (*slog.Logger, error) {
	if console == nil {
		console = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	out := console
	var err error
	if path := strings.TrimSpace(file); path != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o750); mkErr != nil {
			err = mkErr
		} else {
			out = io.MultiWriter(console, &lumberjack.Logger{
				Filename:   path,
				MaxSize:    maxLogSizeMB,
				MaxBackups: maxLogBackups,
				MaxAge:     maxLogAgeDays,
				Compress:   true,
			})
		}
	}

	logger := slog.New(contextHandler{slog.NewJSONHandler(out, opts)})
	slog.SetDefault(logger)
	return logger, err
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
