package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components.
var (
	// ErrIndexNotFound signals an operation against an index that does
	// not exist. Distinct from an empty query result, which is success.
	ErrIndexNotFound = errors.New("index not found")
	// ErrDimensionMismatch signals a vector whose width differs from
	// the index's configured dimension. This is a configuration
	// mistake, never recoverable at runtime.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// ConfigError is a fatal, non-retryable caller mistake: a missing API
// key, a missing index name, an unsupported file type. The Setting
// field names what is missing or invalid.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// NewConfigError builds a ConfigError for the given setting.
func NewConfigError(setting, reason string) error {
	return &ConfigError{Setting: setting, Reason: reason}
}

// TransientError wraps a network or service failure that a caller may
// retry. The pipeline itself never retries; that policy lives in a
// wrapper layer.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as retryable, tagged with the failing
// operation.
func NewTransientError(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsConfig reports whether err is a fatal configuration error.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
