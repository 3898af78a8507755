// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates a tweak path or option value is unusable
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedPackage indicates a package archive could not be unpacked
	ErrMalformedPackage = errors.New("malformed package")

	// ErrExternalTool indicates a binary-editing or archive tool failed
	ErrExternalTool = errors.New("external tool failure")

	// ErrSupportLibraryUnavailable indicates a required support library is missing from the cache
	ErrSupportLibraryUnavailable = errors.New("support library unavailable")

	// ErrNotFound indicates a name is not present in a store
	ErrNotFound = errors.New("not found")

	// ErrConflictingModes indicates executable injection was combined with the substitute runtime
	ErrConflictingModes = errors.New("conflicting injection modes")

	// ErrInvalidBundle indicates the input is not a usable .ipa or .app
	ErrInvalidBundle = errors.New("invalid bundle")
)

// Error wraps an error with additional context
type Error struct {
	Op   string // Operation that failed
	Path string // Path the operation was working on, if any
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// MissingInputsError reports every tweak input that does not exist.
type MissingInputsError struct {
	Paths []string
}

func (e *MissingInputsError) Error() string {
	if len(e.Paths) == 1 {
		return fmt.Sprintf("%s does not exist", e.Paths[0])
	}
	return fmt.Sprintf("%s do not exist", strings.Join(e.Paths, ", "))
}

func (e *MissingInputsError) Unwrap() error {
	return ErrInvalidInput
}
