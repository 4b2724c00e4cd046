// Package saiqlerr defines SAIQL's stable error taxonomy. Every pipeline
// phase either fully succeeds or raises one of these; nothing below the
// engine's execute boundary is allowed to leak an untagged error.
package saiqlerr

import (
	"fmt"

	"github.com/saiql-project/saiql-go/pkg/token"
)

// Code names a stable error category; it is not tied to any Go type name
// so callers can match on it even if the underlying struct changes shape.
type Code string

const (
	CodeSyntaxError      Code = "SYNTAX_ERROR"
	CodeCompilationError Code = "COMPILATION_ERROR"
	CodeSafetyViolation  Code = "SAFETY_VIOLATION"
	CodeSecurityBlock    Code = "SECURITY_BLOCK"
	CodeSecurityRedact   Code = "SECURITY_REDACT"
	CodeStorageError     Code = "STORAGE_ERROR"
	CodeRuntimeError     Code = "RUNTIME_ERROR"
	CodeTimeout          Code = "TIMEOUT"
	CodeNotFound         Code = "NOT_FOUND"
)

// Error is SAIQL's canonical error type. Phase records which pipeline
// stage raised it (lexical_analysis, parsing, semantic_analysis,
// optimization, code_generation, database_execution, security_guard,
// pipeline_execution, ...), so the engine can tag its QueryResult without
// string-matching on the message.
type Error struct {
	Code    Code
	Phase   string
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Phase, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithPhase returns a copy of e tagged with the given pipeline phase.
func (e *Error) WithPhase(phase string) *Error {
	cp := *e
	cp.Phase = phase
	return &cp
}

func newErr(code Code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// NewSyntaxError builds a lexer/parser failure carrying source position.
func NewSyntaxError(message string, pos token.Position) *Error {
	return newErr(CodeSyntaxError, message, map[string]any{
		"offset": pos.Offset,
		"line":   pos.Line,
		"column": pos.Column,
	})
}

// NewCompilationError builds a semantic-analysis or code-generation failure.
func NewCompilationError(message string, details map[string]any) *Error {
	return newErr(CodeCompilationError, message, details)
}

// NewSafetyViolation builds a safety-policy rejection.
func NewSafetyViolation(message string) *Error {
	return newErr(CodeSafetyViolation, message, nil)
}

// NewSecurityBlock builds a pre-prompt firewall BLOCK decision.
func NewSecurityBlock(reasons []string) *Error {
	return newErr(CodeSecurityBlock, "request blocked by semantic firewall", map[string]any{
		"reasons": reasons,
	})
}

// NewSecurityRedact builds a post-output firewall REDACT annotation (not
// fatal — carried alongside a successful result).
func NewSecurityRedact(reasons []string) *Error {
	return newErr(CodeSecurityRedact, "output redacted by semantic firewall", map[string]any{
		"reasons": reasons,
	})
}

// NewStorageError wraps an adapter-reported failure.
func NewStorageError(message string, cause error) *Error {
	e := newErr(CodeStorageError, message, nil)
	e.cause = cause
	return e
}

// NewRuntimeError builds an engine-orchestration or invariant-violation
// failure.
func NewRuntimeError(message string, cause error) *Error {
	e := newErr(CodeRuntimeError, message, nil)
	e.cause = cause
	return e
}

// NewTimeout builds a lock-acquisition or query-budget timeout.
func NewTimeout(message string) *Error {
	return newErr(CodeTimeout, message, nil)
}

// NewNotFound builds a missing session/transaction/resource error.
func NewNotFound(message string) *Error {
	return newErr(CodeNotFound, message, nil)
}

// As reports whether err is a *Error and returns it.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
