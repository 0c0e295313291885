package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure returned by the core wraps exactly one of these
// so callers can branch with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRoleMismatch        = errors.New("role mismatch")
	ErrTransient           = errors.New("transient storage failure")
	ErrForbidden           = errors.New("access forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)

var (
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)
	ErrUserExists            = fmt.Errorf("username already taken: %w", ErrConflict)
	ErrProfileNotFound       = fmt.Errorf("profile %w", ErrNotFound)
	ErrCollaborationNotFound = fmt.Errorf("collaboration %w", ErrNotFound)
	ErrActiveCollaboration   = fmt.Errorf("active collaboration already exists: %w", ErrConflict)
	ErrRoyaltyNotFound       = fmt.Errorf("royalty %w", ErrNotFound)
	ErrTransactionNotFound   = fmt.Errorf("transaction %w", ErrNotFound)
	ErrNotificationNotFound  = fmt.Errorf("notification %w", ErrNotFound)
)

// Validationf returns an ErrValidation carrying a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsKnown reports whether err belongs to the core taxonomy.
func IsKnown(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrConflict, ErrNotFound, ErrInvalidTransition, ErrInvalidState,
		ErrInsufficientBalance, ErrRoleMismatch, ErrTransient, ErrForbidden, ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func fmtRoleMismatch(reason string) error {
	return fmt.Errorf("%w: %s", ErrRoleMismatch, reason)
}
