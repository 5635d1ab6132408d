package util

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service-layer failures so controllers can map them
// to HTTP statuses without string matching. Every service returns plain
// (T, error); the error is an *AppError when the kind matters.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNoData           ErrorKind = "no_data"
	KindNotFound         ErrorKind = "not_found"
	KindStoreUnavailable ErrorKind = "store_unavailable"
)

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NoData(format string, args ...interface{}) error {
	return &AppError{Kind: KindNoData, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func StoreUnavailable(err error) error {
	return &AppError{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrToolUnknown  = errors.New("unknown tool")
)
