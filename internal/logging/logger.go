// Package logging constructs the process-wide slog logger and provides
// helpers for logging credential material safely.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
)

// NewLogger creates a structured logger appropriate for the environment.
// Production uses JSON format, development uses human-readable text.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// TokenAttr returns a slog attribute identifying a token without exposing
// it: the first 12 hex characters of its SHA-256 digest. Enough to
// correlate log lines across a refresh, useless to an attacker.
func TokenAttr(key, token string) slog.Attr {
	if token == "" {
		return slog.String(key, "")
	}

	h := sha256.Sum256([]byte(token))

	return slog.String(key, hex.EncodeToString(h[:])[:12])
}
