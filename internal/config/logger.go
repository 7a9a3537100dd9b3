package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// secretKeys are attribute names whose string values never reach the log
// in full.
var secretKeys = map[string]struct{}{
	"token":         {},
	"password":      {},
	"authorization": {},
	"cookie":        {},
	"secret":        {},
	"apikey":        {},
}

// NewLogger builds the process logger from cfg.
func NewLogger(w io.Writer, cfg LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if _, ok := secretKeys[strings.ToLower(a.Key)]; ok && a.Value.Kind() == slog.KindString {
				return slog.String(a.Key, maskSecret(a.Value.String()))
			}
			return a
		},
	}

	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format: %s (valid: text, json)", cfg.Format)
}

// maskSecret keeps the first third of s so values can still be told apart.
func maskSecret(s string) string {
	n := len(s)
	if n < 3 {
		return strings.Repeat("*", n)
	}
	return s[:n/3] + strings.Repeat("*", n-n/3)
}
