package logging_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/internal/logging"
)

func TestNewParsesValidLevel(t *testing.T) {
	log := logging.New("debug")
	require.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNewFallsBackToInfoOnInvalidLevel(t *testing.T) {
	log := logging.New("not-a-level")
	require.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestWithTraceAttachesFields(t *testing.T) {
	log := logging.New("info")
	entry := logging.WithTrace(log, "trace-1", "session-1", "hash-1")
	require.Equal(t, "trace-1", entry.Data["trace_id"])
	require.Equal(t, "session-1", entry.Data["session_id"])
	require.Equal(t, "hash-1", entry.Data["query_hash"])
}
