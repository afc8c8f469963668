package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeMissingField     = "missing_field"
	ErrCodeWrongPassword    = "wrong_password"
	ErrCodeNotFound         = "not_found"
	ErrCodeStoreUnavailable = "store_unavailable"
)

var (
	ErrMissingField  = errors.New("missing field")
	ErrWrongPassword = errors.New("wrong password")
	ErrNotFound      = errors.New("not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
