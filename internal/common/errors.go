// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Rule cache errors.
	ErrCacheDisabled     = errors.New("rule cache is disabled")
	ErrEngineUnavailable = errors.New("engine not available")

	// Storage errors.
	ErrNotFound = errors.New("not found")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UnavailableError reports that a lazily loaded component could not be built.
type UnavailableError struct {
	Cause     error
	Component string
}

func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Component, ErrEngineUnavailable, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Component, ErrEngineUnavailable)
}

// Is lets errors.Is match ErrEngineUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrEngineUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// NewUnavailableError wraps cause for the named component.
func NewUnavailableError(component string, cause error) error {
	return &UnavailableError{Component: component, Cause: cause}
}
