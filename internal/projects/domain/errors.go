package domain

import "errors"

var (
	// ErrValidation marks bad or missing user input.
	ErrValidation = errors.New("invalid request")
	// ErrSizeExceeded marks an upload above the configured limit.
	ErrSizeExceeded = errors.New("upload exceeds maximum size")
	// ErrGeneration marks a failure of the external code generator.
	ErrGeneration = errors.New("code generation failed")
	// ErrNotFound marks an unknown project, generation or file.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks a filesystem failure.
	ErrStorage = errors.New("storage error")
)
