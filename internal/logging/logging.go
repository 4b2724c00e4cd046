// Package logging wires a process-wide logrus logger, configured from
// internal/config's logging section.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the given level ("debug", "info", "warn",
// "error"; anything else falls back to "info"), writing structured JSON
// to stdout.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// WithTrace returns an entry carrying the fields every pipeline log line
// in the engine attaches: trace_id, session_id, and a truncated query hash.
func WithTrace(log *logrus.Logger, traceID, sessionID, queryHash string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"trace_id":   traceID,
		"session_id": sessionID,
		"query_hash": queryHash,
	})
}
