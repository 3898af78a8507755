// errors.go
package zule

import "github.com/arc-language/zule/pkg/core"

var (
	// ErrInvalidInput indicates a missing or unusable input path or option
	ErrInvalidInput = core.ErrInvalidInput

	// ErrMalformedPackage indicates a package archive could not be unpacked
	ErrMalformedPackage = core.ErrMalformedPackage

	// ErrExternalTool indicates an external binary tool failed
	ErrExternalTool = core.ErrExternalTool

	// ErrSupportLibraryUnavailable indicates a required support library is not cached
	ErrSupportLibraryUnavailable = core.ErrSupportLibraryUnavailable

	// ErrConflictingModes indicates incompatible injection options
	ErrConflictingModes = core.ErrConflictingModes

	// ErrInvalidBundle indicates the input is not a usable ipa or app
	ErrInvalidBundle = core.ErrInvalidBundle
)

// Error wraps an error with additional context
type Error = core.Error

// MissingInputsError lists every input path that does not exist
type MissingInputsError = core.MissingInputsError
