package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
)

// Kind classifies a transfer engine failure.
type Kind string

const (
	KindConnectionFailed     Kind = "CONNECTION_FAILED"
	KindAuthenticationFailed Kind = "AUTHENTICATION_FAILED"
	KindPathNotFound         Kind = "PATH_NOT_FOUND"
	KindUploadFailed         Kind = "UPLOAD_FAILED"
	KindDownloadFailed       Kind = "DOWNLOAD_FAILED"
	KindConnectionTimeout    Kind = "CONNECTION_TIMEOUT"
	KindInvalidCredentials   Kind = "INVALID_CREDENTIALS"
	KindNetwork              Kind = "NETWORK"
	KindInsufficientStorage  Kind = "INSUFFICIENT_STORAGE"
	KindValidationFailed     Kind = "VALIDATION_FAILED"
	KindNotConfigured        Kind = "NOT_CONFIGURED"
	KindSaveFailed           Kind = "SAVE_FAILED"
	KindRepositoryIO         Kind = "REPOSITORY_IO"
	KindCancelled            Kind = "CANCELLED"
)

// TransferError represents an error that occurred during a transfer or
// storage operation.
type TransferError struct {
	Err       error  // Original error
	Kind      Kind   // Failure classification
	Resource  string // What resource was being accessed
	Timestamp time.Time

	// Storage admission details, set only for KindInsufficientStorage.
	RequiredBytes  uint64
	AvailableBytes uint64
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	if e.Kind == KindInsufficientStorage {
		return fmt.Sprintf("[%s] %s: required %d bytes, available %d bytes", e.Kind, e.Resource, e.RequiredBytes, e.AvailableBytes)
	}
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Resource)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Resource, e.Err)
}

// Unwrap provides the underlying cause for error unwrapping (compatible with errors.As).
func (e *TransferError) Unwrap() error {
	return e.Err
}

// Common sentinel errors
var (
	ErrProfileNotFound = New("connection profile not found")
	ErrRecordNotFound  = New("local record not found")
	ErrSecretNotFound  = New("secret not found")
	ErrNotConnected    = New("not connected")
)

// NewKind wraps err with an explicit kind.
func NewKind(kind Kind, err error, resource string) *TransferError {
	return &TransferError{
		Err:       err,
		Kind:      kind,
		Resource:  resource,
		Timestamp: time.Now(),
	}
}

// NewConnectionError creates a connection establishment error.
func NewConnectionError(err error, resource string) *TransferError {
	return NewKind(KindConnectionFailed, err, resource)
}

// NewAuthError creates an authentication failure, distinct from a network error.
func NewAuthError(err error, resource string) *TransferError {
	return NewKind(KindAuthenticationFailed, err, resource)
}

// NewCredentialsError marks missing or unusable credentials, detected
// before any network I/O.
func NewCredentialsError(err error, resource string) *TransferError {
	return NewKind(KindInvalidCredentials, err, resource)
}

// NewTimeoutError creates a bounded-probe timeout error.
func NewTimeoutError(err error, resource string) *TransferError {
	return NewKind(KindConnectionTimeout, err, resource)
}

// NewNetworkError creates a network-related error.
func NewNetworkError(err error, resource string) *TransferError {
	return NewKind(KindNetwork, err, resource)
}

// NewStorageError creates an insufficient-storage admission failure
// carrying both sides of the comparison.
func NewStorageError(required, available uint64) *TransferError {
	return &TransferError{
		Err:            New("insufficient storage"),
		Kind:           KindInsufficientStorage,
		Timestamp:      time.Now(),
		RequiredBytes:  required,
		AvailableBytes: available,
	}
}

// NewValidationError creates a file validation failure.
func NewValidationError(detail, resource string) *TransferError {
	return NewKind(KindValidationFailed, New(detail), resource)
}

// NewRepositoryError creates a local repository I/O error.
func NewRepositoryError(err error, resource string) *TransferError {
	return NewKind(KindRepositoryIO, err, resource)
}

// KindOf extracts the kind from an error, or "" if it is not a TransferError.
func KindOf(err error) Kind {
	var te *TransferError
	if As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsAuthFailure reports whether the error is an authentication or
// credentials failure.
func IsAuthFailure(err error) bool {
	k := KindOf(err)
	return k == KindAuthenticationFailed || k == KindInvalidCredentials
}

// IsTimeout reports whether the error is a probe timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindConnectionTimeout
}

// IsInsufficientStorage reports whether the error is a storage admission failure.
func IsInsufficientStorage(err error) bool {
	return KindOf(err) == KindInsufficientStorage
}

// StorageNumbers extracts required/available bytes from an
// insufficient-storage error.
func StorageNumbers(err error) (required, available uint64, ok bool) {
	var te *TransferError
	if As(err, &te) && te.Kind == KindInsufficientStorage {
		return te.RequiredBytes, te.AvailableBytes, true
	}
	return 0, 0, false
}
