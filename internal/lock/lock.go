// Package lock provides a cross-process exclusive lock backed by a file.
package lock

import "errors"

// ErrLocked is returned when another process already holds the lock.
var ErrLocked = errors.New("log already in use by another process")
