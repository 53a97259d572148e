// Package apperr defines the error taxonomy shared by the matching core.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers.
type Kind string

const (
	// KindNotInitialized means the model or corpus is still loading, or the load failed.
	KindNotInitialized Kind = "not_initialized"
	// KindNoData means there is nothing to operate on: empty corpus or missing user record.
	KindNoData Kind = "no_data"
	// KindDimensionMismatch means embedding shapes disagree.
	KindDimensionMismatch Kind = "dimension_mismatch"
	// KindCollaboratorParse means collaborator output could not be parsed.
	KindCollaboratorParse Kind = "collaborator_parse_error"
)

// Sentinels for errors.Is.
var (
	ErrNotInitialized    = &Error{Kind: KindNotInitialized, Message: "service not initialized"}
	ErrNoData            = &Error{Kind: KindNoData, Message: "no data"}
	ErrDimensionMismatch = &Error{Kind: KindDimensionMismatch, Message: "embedding dimension mismatch"}
	ErrCollaboratorParse = &Error{Kind: KindCollaboratorParse, Message: "unparsable collaborator output"}
)

// Error is a classified failure with optional operation context and cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same Kind, so wrapped errors compare equal to
// the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New returns an error of the given kind.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind carrying cause.
func Wrap(kind Kind, op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NotInitialized is shorthand for a KindNotInitialized error.
func NotInitialized(op, format string, args ...any) *Error {
	return New(KindNotInitialized, op, format, args...)
}

// NoData is shorthand for a KindNoData error.
func NoData(op, format string, args ...any) *Error {
	return New(KindNoData, op, format, args...)
}

// DimensionMismatch reports two disagreeing vector lengths.
func DimensionMismatch(op string, want, got int) *Error {
	return New(KindDimensionMismatch, op, "expected dimension %d, got %d", want, got)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Retryable reports whether the caller may retry the same request later.
// Only NotInitialized qualifies.
func Retryable(err error) bool {
	return KindOf(err) == KindNotInitialized
}
