package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error with contextual
// information. This standardized error type provides consistent error
// handling for cases where requested resources don't exist in the system.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "shell", "feature").
	ResourceType string

	// ResourceName is the specific identifier of the resource that was not found.
	ResourceName string

	// Message provides a custom error message if the default format is insufficient.
	Message string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified resource
// type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// DuplicateError represents an attempt to create a resource under a name
// that is already taken.
type DuplicateError struct {
	// ResourceType categorizes the type of resource (e.g., "shell").
	ResourceType string

	// ResourceName is the identifier that collided.
	ResourceName string
}

// Error implements the error interface for DuplicateError.
func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.ResourceType, e.ResourceName)
}

// IsDuplicate checks if an error is a DuplicateError using error unwrapping.
func IsDuplicate(err error) bool {
	var dupErr *DuplicateError
	return errors.As(err, &dupErr)
}

// Specific constructors for each resource type. These provide convenient,
// type-specific error creation with consistent naming.
var (
	// NewShellNotFoundError creates a shell not found error.
	NewShellNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("shell", name)
	}

	// NewFeatureNotFoundError creates a feature not found error.
	NewFeatureNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("feature", name)
	}

	// NewDuplicateShellError creates a duplicate shell error.
	NewDuplicateShellError = func(name string) *DuplicateError {
		return &DuplicateError{ResourceType: "shell", ResourceName: name}
	}
)
