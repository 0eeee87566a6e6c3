package service

import (
	"errors"

	"bureau-engine/internal/auth"
)

var (
	// ErrInvalidCredentials covers both unknown identifiers and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDeactivated is returned for accounts disabled by an administrator.
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrAccountLocked is returned while an account is locked after repeated failures.
	ErrAccountLocked = errors.New("account is temporarily locked")
	// ErrAccountExists is returned when registering a taken username or email.
	ErrAccountExists = errors.New("account with this email or username already exists")
	// ErrAccountNotFound is returned for lookups by id that match nothing.
	ErrAccountNotFound = errors.New("account not found")

	ErrTokenInvalid = auth.ErrTokenInvalid
	ErrTokenExpired = auth.ErrTokenExpired

	ErrContactNotFound  = errors.New("contact not found")
	ErrDuplicateContact = errors.New("contact already submitted recently")
	ErrProjectNotFound  = errors.New("project not found")
	// ErrMultiplePrimaryImages rejects projects with more than one primary image.
	ErrMultiplePrimaryImages = errors.New("only one image can be marked as primary")
	ErrStorageDisabled       = errors.New("object storage is not configured")
)

// ValidationError lists field level problems with an input.
type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation error"
	}
	return "validation error: " + e.Fields[0].Field + " " + e.Fields[0].Message
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
