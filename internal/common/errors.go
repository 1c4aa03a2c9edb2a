// Package common defines shared sentinel errors used across the calendar
// core. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound       = errors.New("not found")
	ErrNotInitialized = errors.New("store not initialized")

	// Validation errors (synchronous, raised before any I/O).
	ErrValidation      = errors.New("validation error")
	ErrContentRejected = errors.New("content rejected by safety validator")

	// Storage-level errors (I/O or cipher failures surfaced to callers).
	ErrStorage = errors.New("storage error")
)
