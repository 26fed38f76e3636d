package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrOutOfScope        = errors.New("resource outside the officer's jurisdiction")
	ErrInsufficientRank  = errors.New("insufficient rank for this action")
	ErrRoleNotPermitted  = errors.New("role not permitted for this action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status value")
	ErrDuplicateFIR      = errors.New("case with this FIR number already exists")
	ErrNoFinancialEntity = errors.New("case has no matching financial entity")
	ErrDuplicateUsername = errors.New("username already registered")
	ErrInvalidCredential = errors.New("incorrect username or password")
	ErrInactiveUser      = errors.New("inactive user")

	ErrFileTooLarge       = errors.New("file exceeds the maximum upload size")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrEmptyFile          = errors.New("file is empty")
	ErrIntegrityFailure   = errors.New("evidence integrity check failed: file hash mismatch")
	ErrDecryptionFailed   = errors.New("failed to decrypt evidence file")
	ErrStoredFileMissing  = errors.New("evidence file missing from storage")
)

// ValidationError is a rejected input with a message safe to show the caller
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
