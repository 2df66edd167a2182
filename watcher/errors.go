package watcher

import "errors"

// ErrNotADirectory is returned when the watch root is not a directory.
var ErrNotADirectory = errors.New("watch root is not a directory")
