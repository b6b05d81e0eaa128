package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrUpload     = errors.New("image upload failed")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("concurrent modification")
	ErrUserExists = errors.New("user with this email already exists")
)

// ValidationError maps offending input fields to a message. It is returned
// before any store mutation happens.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpload, e.Err)
}

func (e *UploadError) Is(target error) bool {
	return target == ErrUpload
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuth, e.Reason)
}

func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}
