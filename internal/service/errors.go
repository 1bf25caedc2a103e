package service

import (
	"errors"
	"fmt"
)

// Service errors.
var (
	ErrValidation          = errors.New("validation failed")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrMissingToken        = errors.New("login succeeded without a token")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrNotLoggedIn         = errors.New("not logged in")
	ErrSessionInvalid      = errors.New("session is no longer valid")
	ErrEmptyKeyword        = errors.New("search keyword is empty")
	ErrEmptyCode           = errors.New("code is empty")
	ErrNotAdmin            = errors.New("admin permission required")
	ErrGameOwned           = errors.New("game has owners and cannot be deleted")
	ErrNoPendingDeposit    = errors.New("no pending deposit")
	ErrDepositNotCompleted = errors.New("deposit was not completed")
)

// ValidationError describes rejected input. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientPointsError reports how many points an unlock needs.
type InsufficientPointsError struct {
	Required int64
}

func (e *InsufficientPointsError) Error() string {
	if e.Required > 0 {
		return fmt.Sprintf("insufficient points: %d required", e.Required)
	}
	return "insufficient points"
}

// IsAuthError reports whether err means the user has to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotLoggedIn) || errors.Is(err, ErrSessionInvalid)
}
