package registry

import "errors"

var (
	// ErrInvalidDirectory is returned when the requested root does not exist
	// or is not a directory.
	ErrInvalidDirectory = errors.New("invalid directory")

	// ErrInvalidCredentials is returned on any authenticate mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
