package saiqlerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiql-project/saiql-go/pkg/saiqlerr"
	"github.com/saiql-project/saiql-go/pkg/token"
)

func TestErrorMessageIncludesPhaseWhenSet(t *testing.T) {
	err := saiqlerr.NewCompilationError("bad query", nil).WithPhase("semantic_analysis")
	require.Equal(t, "[semantic_analysis:COMPILATION_ERROR] bad query", err.Error())
}

func TestErrorMessageOmitsPhaseWhenUnset(t *testing.T) {
	err := saiqlerr.NewSafetyViolation("blocked")
	require.Equal(t, "[SAFETY_VIOLATION] blocked", err.Error())
}

func TestWithPhaseDoesNotMutateOriginal(t *testing.T) {
	base := saiqlerr.NewRuntimeError("boom", nil)
	tagged := base.WithPhase("pipeline_execution")
	require.Empty(t, base.Phase)
	require.Equal(t, "pipeline_execution", tagged.Phase)
}

func TestNewSyntaxErrorCarriesPosition(t *testing.T) {
	err := saiqlerr.NewSyntaxError("unexpected token", token.Position{Offset: 5, Line: 1, Column: 6})
	require.Equal(t, saiqlerr.CodeSyntaxError, err.Code)
	require.Equal(t, 5, err.Details["offset"])
	require.Equal(t, 1, err.Details["line"])
	require.Equal(t, 6, err.Details["column"])
}

func TestNewStorageErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("disk full")
	err := saiqlerr.NewStorageError("write failed", cause)
	require.ErrorIs(t, err, cause)
}

func TestAsRecognizesSaiqlError(t *testing.T) {
	err := saiqlerr.NewNotFound("session missing")
	got, ok := saiqlerr.As(err)
	require.True(t, ok)
	require.Equal(t, saiqlerr.CodeNotFound, got.Code)
}

func TestAsRejectsForeignError(t *testing.T) {
	_, ok := saiqlerr.As(errors.New("plain error"))
	require.False(t, ok)
}
