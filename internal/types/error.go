package types

import (
	"errors"
	"fmt"
)

// CustomError is the error shape surfaced at the HTTP boundary.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// Kind classifies store and engine failures independent of transport.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindInvalidName
	KindInvalidDocument
	KindInvalidQuery
	KindQuotaExceeded
	KindRateLimited
	KindBackendUnavailable
	KindConflict
)

// String returns the wire label for a kind, used as the response "type" field.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidName:
		return "invalid_name"
	case KindInvalidDocument:
		return "invalid_document"
	case KindInvalidQuery:
		return "invalid_query"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindRateLimited:
		return "rate_limited"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// StoreError is a kinded error raised by the file store and client engine.
type StoreError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// E builds a StoreError with a formatted message.
func E(kind Kind, format string, args ...interface{}) *StoreError {
	return &StoreError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a StoreError around an underlying cause.
func Wrap(kind Kind, err error, message string) *StoreError {
	return &StoreError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
