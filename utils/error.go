package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so handlers can map them to the
// right HTTP status and callers can branch without string matching.
type ErrorKind string

const (
	ErrKindInvalidInput        ErrorKind = "InvalidInput"
	ErrKindPayloadTooLarge     ErrorKind = "PayloadTooLarge"
	ErrKindOracleFailure       ErrorKind = "OracleFailure"
	ErrKindOracleTimeout       ErrorKind = "OracleTimeout"
	ErrKindMalformedAssessment ErrorKind = "MalformedAssessment"
	ErrKindPersistenceFailure  ErrorKind = "PersistenceFailure"
	ErrKindSideEffectFailure   ErrorKind = "SideEffectFailure"
)

// AppError carries a kind alongside the underlying cause.
type AppError struct {
	Kind ErrorKind
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(kind ErrorKind, err error) *AppError {
	return &AppError{Kind: kind, Err: err}
}

func NewAppErrorf(kind ErrorKind, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the kind from err, or "" when err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsClientError reports whether the failure was caused by the request
// itself and should never reach the oracle.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case ErrKindInvalidInput, ErrKindPayloadTooLarge:
		return true
	}
	return false
}
