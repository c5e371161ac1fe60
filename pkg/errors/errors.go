// Package errors defines error types and utilities for CacheTheory
package errors

import (
	"errors"
	"fmt"
)

// Common errors that can occur in CacheTheory operations
var (
	// ErrNotFound is returned when a token, record, or key is absent from the
	// backing store. Absence is a normal result, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable is returned when the backing store cannot be reached
	// or a round-trip fails for connectivity reasons.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidConfig is returned when a connection configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderNotConfigured is returned when the refresh worker is started
	// without a record provider.
	ErrProviderNotConfigured = errors.New("record provider not configured")

	// ErrMalformedRecord is returned when a cached row payload cannot be decoded
	ErrMalformedRecord = errors.New("malformed record")
)

// StoreError wraps a failed store round-trip with the operation and key that
// failed. Values are never included in the message.
type StoreError struct {
	Err error
	Op  string
	Key string
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e == nil {
		return "cachetheory: store operation failed"
	}
	if e.Key == "" {
		return fmt.Sprintf("cachetheory: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cachetheory: %s on %q failed: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target. Every StoreError matches
// ErrStoreUnavailable; NotFound results are never wrapped in a StoreError.
func (e *StoreError) Is(target error) bool {
	if target == ErrStoreUnavailable {
		return true
	}
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new StoreError
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

// IsNotFound checks if an error indicates an absent token, record, or key
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable checks if an error indicates a store connectivity failure
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
