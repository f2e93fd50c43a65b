package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrFeedNotFound indicates the referenced Feed does not exist.
	ErrFeedNotFound = errors.New("feed not found")

	// ErrStoryNotFound indicates the referenced Story does not exist.
	ErrStoryNotFound = errors.New("story not found")

	// ErrFeedCreationNotFound indicates the referenced FeedCreation does not
	// exist, typically because the janitor already garbage-collected it.
	ErrFeedCreationNotFound = errors.New("feed creation not found")
)

// ValidationError represents a validation error with detailed field information.
// It implements the error interface and provides context about which field failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
