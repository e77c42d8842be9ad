package apperr

import (
	"errors"
	"fmt"
)

// Code identifies an engine outcome that callers can branch on. Gate and
// lifecycle codes are expected, user-visible results, not system faults.
type Code string

const (
	CodeNotAvailable             Code = "NOT_AVAILABLE"
	CodeQuizDisabled             Code = "QUIZ_DISABLED"
	CodeMaxAttemptsReached       Code = "MAX_ATTEMPTS_REACHED"
	CodeRetakeNotAllowed         Code = "RETAKE_NOT_ALLOWED"
	CodeAttemptAlreadyInProgress Code = "ATTEMPT_ALREADY_IN_PROGRESS"
	CodeQuizNotFound             Code = "QUIZ_NOT_FOUND"
	CodeAttemptNotFound          Code = "ATTEMPT_NOT_FOUND"
	CodeQuestionNotFound         Code = "QUESTION_NOT_FOUND"
	CodeAttemptAlreadyCompleted  Code = "ATTEMPT_ALREADY_COMPLETED"
	CodeConcurrentConflict       Code = "CONCURRENT_ATTEMPT_CONFLICT"
	CodeForbidden                Code = "FORBIDDEN"
	CodeDataIntegrity            Code = "INTERNAL_DATA_INTEGRITY_ERROR"
)

type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes two apperr values match on code, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

var (
	ErrNotAvailable             = New(CodeNotAvailable, "quiz is not available right now")
	ErrQuizDisabled             = New(CodeQuizDisabled, "quiz has been disabled")
	ErrMaxAttemptsReached       = New(CodeMaxAttemptsReached, "maximum number of attempts reached")
	ErrRetakeNotAllowed         = New(CodeRetakeNotAllowed, "quiz does not allow retakes")
	ErrAttemptAlreadyInProgress = New(CodeAttemptAlreadyInProgress, "an attempt is already in progress")
	ErrQuizNotFound             = New(CodeQuizNotFound, "quiz not found")
	ErrAttemptNotFound          = New(CodeAttemptNotFound, "attempt not found")
	ErrQuestionNotFound         = New(CodeQuestionNotFound, "question does not belong to this quiz")
	ErrAttemptAlreadyCompleted  = New(CodeAttemptAlreadyCompleted, "attempt has already been completed")
	ErrConcurrentConflict       = New(CodeConcurrentConflict, "another attempt was started concurrently, retry")
	ErrForbidden                = New(CodeForbidden, "attempt belongs to another student")
)

// CodeOf extracts the engine code from err, or empty string for plain errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
