// Package apperror defines the error kinds shared by the retrieval pipeline.
//
// Every error that crosses a component boundary is an *Error carrying a Kind.
// Callers branch on the kind with errors.Is against the sentinels below, or
// with KindOf / IsRetryable.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and presentation decisions.
type Kind string

const (
	KindConfiguration     Kind = "CONFIGURATION"
	KindValidation        Kind = "VALIDATION"
	KindIndexUnavailable  Kind = "INDEX_UNAVAILABLE"
	KindEmbedding         Kind = "EMBEDDING"
	KindGeneration        Kind = "GENERATION"
	KindNamespaceConflict Kind = "NAMESPACE_CONFLICT"
	KindInternal          Kind = "INTERNAL"
)

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrIndexUnavailable  = &Error{Kind: KindIndexUnavailable}
	ErrEmbedding         = &Error{Kind: KindEmbedding}
	ErrGeneration        = &Error{Kind: KindGeneration}
	ErrNamespaceConflict = &Error{Kind: KindNamespaceConflict}
)

// Error is a classified pipeline error.
//
// The underlying cause (if any) can be accessed via errors.Unwrap.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
	// Permanent marks a failure of a transient kind that repeating the same
	// call cannot fix, such as an input over the model limit.
	Permanent bool
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. An err that already carries a kind keeps it, so
// wrapping twice never reclassifies a failure.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op, format string, args ...interface{}) *Error {
	return New(KindConfiguration, op, format, args...)
}

func Validation(op, format string, args ...interface{}) *Error {
	return New(KindValidation, op, format, args...)
}

func NamespaceConflict(op, format string, args ...interface{}) *Error {
	return New(KindNamespaceConflict, op, format, args...)
}

func IndexUnavailable(op string, err error) error { return Wrap(KindIndexUnavailable, op, err) }

func Embedding(op string, err error) error { return Wrap(KindEmbedding, op, err) }

func Generation(op string, err error) error { return Wrap(KindGeneration, op, err) }

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether err is a transient external-dependency failure.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) || e.Permanent {
		return false
	}
	switch e.Kind {
	case KindIndexUnavailable, KindEmbedding, KindGeneration:
		return true
	}
	return false
}

// UserMessage renders err for a presentation layer without internal detail.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindValidation:
		var e *Error
		errors.As(err, &e)
		if e.Message != "" {
			return e.Message
		}
		return "the request is invalid"
	case KindConfiguration:
		return "the service is misconfigured; contact the operator"
	case KindNamespaceConflict:
		return "the vector index namespace does not match the configured embedding model"
	case KindIndexUnavailable:
		return "the vector index is temporarily unavailable, please retry later"
	case KindEmbedding:
		return "the embedding service is temporarily unavailable, please retry later"
	case KindGeneration:
		return "the answer generator is temporarily unavailable, please retry later"
	}
	return "an unexpected error occurred"
}
