package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelsMatchByCode(t *testing.T) {
	err := Wrap(CodeConcurrentConflict, "retries exhausted", errors.New("duplicate key"))
	if !errors.Is(err, ErrConcurrentConflict) {
		t.Error("wrapped error should match the sentinel with the same code")
	}
	if errors.Is(err, ErrQuizNotFound) {
		t.Error("errors with different codes must not match")
	}
}

func TestMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", ErrAttemptAlreadyCompleted)
	if !errors.Is(err, ErrAttemptAlreadyCompleted) {
		t.Error("sentinel should survive fmt.Errorf wrapping")
	}
	if CodeOf(err) != CodeAttemptAlreadyCompleted {
		t.Errorf("CodeOf = %q, want %q", CodeOf(err), CodeAttemptAlreadyCompleted)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("boom")) != "" {
		t.Error("plain errors carry no code")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeDataIntegrity, "load failed", cause)
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}
