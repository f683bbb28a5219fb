package core

import (
	"errors"

	"github.com/0xRadioAc7iv/go-filelog/internal/entry"
)

// ErrInvalidArgument is returned for identifiers outside the log and for
// inputs the on-disk format cannot represent. The store is left untouched.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrIllegalState is returned when an operation needs a running store.
var ErrIllegalState = errors.New("log store is not running")

// ErrIO wraps filesystem failures while reading or writing the log file.
var ErrIO = errors.New("log file i/o failure")

// ErrCorrupt is returned when replay or a read finds bytes that fail
// validation. A store whose replay fails never starts.
var ErrCorrupt = entry.ErrCorrupt

// ErrUnsupported is returned by operations the store deliberately refuses.
var ErrUnsupported = errors.ErrUnsupported
