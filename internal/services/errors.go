package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions handlers map to 4xx/503 responses.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrMissingAsset     = errors.New("no model asset in provider response")
	ErrStoreUnavailable = errors.New("document store not initialized")
)

// NotReadyError is returned when an operation needs a succeeded task but
// the provider reports something else. Status carries the provider's
// current canonical status for the caller's error message.
type NotReadyError struct {
	Status string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("model not ready yet: %s", e.Status)
}

// ProviderError wraps a failed call to the Meshy API, transport errors
// included.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("meshy api error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError wraps a failed object-storage operation.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %v", e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
