package ingest

import "errors"

var (
	// ErrUnsupportedType is returned for anything that is not a jpeg, png,
	// gif or webp by content, whatever the file is named.
	ErrUnsupportedType = errors.New("unsupported file type, expected JPEG, PNG, GIF or WebP")

	// ErrTooLarge is returned for files over the size limit.
	ErrTooLarge = errors.New("file size exceeds 10MB limit")

	// ErrUploadFailed wraps any remote store failure, timeouts included.
	ErrUploadFailed = errors.New("upload failed")
)
