package core

import (
	"io/fs"
	"log/slog"
)

// Option configures a Store at Open time.
type Option func(*Store)

// WithLogger routes the store's diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProcessLock makes Start take an exclusive advisory lock on a sibling
// "<path>.lock" file so that two processes cannot run the same log. The lock
// is released by ShutDown or a failed Start.
func WithProcessLock() Option {
	return func(s *Store) {
		s.processLock = true
	}
}

// WithFileMode sets the permission bits used when the log file is created.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *Store) {
		s.fileMode = mode
	}
}
