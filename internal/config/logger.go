package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Форматы логов
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ParseLevel разбирает уровень логирования: debug, info, warn, error
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// NewLogger создает logger с нужным уровнем и форматом
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	l, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: l}
	switch format {
	case LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func validateLog(level, format string) error {
	if _, err := ParseLevel(level); err != nil {
		return err
	}
	if format != LogFormatText && format != LogFormatJSON {
		return fmt.Errorf("invalid log format %q", format)
	}
	return nil
}
