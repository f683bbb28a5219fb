// Package core implements a file-backed, append-only log.
//
// A Store keeps every entry in a single file, assigns identifiers 0, 1, 2, ...
// in append order and serves random reads by identifier through an in-memory
// index that Start rebuilds by replaying the file. One writer runs at a time
// and excludes readers; readers share access with each other.
package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/0xRadioAc7iv/go-filelog/internal/entry"
	"github.com/0xRadioAc7iv/go-filelog/internal/lock"
)

// State is the lifecycle position of a Store.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (st State) String() string {
	switch st {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Store struct {
	path        string
	fileMode    fs.FileMode
	processLock bool
	logger      *slog.Logger

	state    atomic.Int32
	stopOnce sync.Once
	lockFile *os.File

	// mu guards index and the log file. Appends and replay hold it
	// exclusively, Handle.CopyTo holds it shared.
	mu    sync.RWMutex
	index Index
}

// Open returns a Store for the log file at path. Nothing on disk is touched
// until Start.
func Open(path string, opts ...Option) *Store {
	s := &Store{
		path:     path,
		fileMode: DefaultFileMode,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("path", path)
	return s
}

// Path returns the location of the log file, which may not exist yet.
func (s *Store) Path() string {
	return s.path
}

// State reports the current lifecycle state.
func (s *Store) State() State {
	return State(s.state.Load())
}

// Start replays the log file, if there is one, and moves the store to
// StateRunning. A missing file is an empty log; it is created by the first
// append. If replay finds corrupt or out of sequence entries Start returns an
// error wrapping ErrCorrupt and the store stays unusable.
func (s *Store) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st := s.State(); st != StateNotStarted {
		return fmt.Errorf("%w: cannot start a store that is %s", ErrIllegalState, st)
	}

	if s.processLock {
		lf, err := lock.LockFile(s.path + LockFileExt)
		if err != nil {
			return err
		}
		s.lockFile = lf
	}

	if err := s.replay(); err != nil {
		s.index.reset()
		s.releaseProcessLock()
		s.logger.Error("replay failed", "error", err)
		return err
	}

	s.state.Store(int32(StateRunning))
	s.logger.Debug("log store started", "entries", s.index.Len())
	return nil
}

func (s *Store) replay() error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("log file does not exist yet, starting empty")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	scanner := entry.NewScanner(bufio.NewReaderSize(f, ReplayBufferBytes))

	for {
		md, err := scanner.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if errors.Is(err, ErrCorrupt) {
				return fmt.Errorf("replay %s: %w", s.path, err)
			}
			return fmt.Errorf("%w: replay %s: %w", ErrIO, s.path, err)
		}

		if md.ID != s.index.Len() {
			return fmt.Errorf("replay %s: %w: id %d does not match position %d", s.path, ErrCorrupt, md.ID, s.index.Len())
		}
		s.index.Append(md)
	}
}

func (s *Store) ensureIsRunning() error {
	if st := s.State(); st != StateRunning {
		return fmt.Errorf("%w (state %s)", ErrIllegalState, st)
	}
	return nil
}

// NextID returns the identifier the next append will receive. An empty log
// returns 0.
func (s *Store) NextID() (int, error) {
	if err := s.ensureIsRunning(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.Len(), nil
}

// Append durably writes payload as a new entry and returns its identifier.
// The file is synced before Append returns. After ShutDown it blocks forever.
func (s *Store) Append(payload []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIsRunning(); err != nil {
		return 0, err
	}

	return s.appendLocked(payload)
}

// AppendFrom reads r to the end and appends the bytes as one entry.
func (s *Store) AppendFrom(r io.Reader) (int, error) {
	if r == nil {
		return 0, fmt.Errorf("%w: nil reader", ErrInvalidArgument)
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	return s.Append(payload)
}

// AppendExpectingID appends payload only if it would be stored under
// expectedID. It returns false, with no error and no change to the log, when
// another writer got there first. Callers refresh NextID and decide whether
// to retry.
func (s *Store) AppendExpectingID(payload []byte, expectedID int) (bool, error) {
	if expectedID < 0 {
		return false, fmt.Errorf("%w: expected id %d is negative", ErrInvalidArgument, expectedID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureIsRunning(); err != nil {
		return false, err
	}

	if expectedID != s.index.Len() {
		return false, nil
	}

	if _, err := s.appendLocked(payload); err != nil {
		return false, err
	}
	return true, nil
}

// appendLocked must be called with mu held exclusively.
func (s *Store) appendLocked(payload []byte) (int, error) {
	id := s.index.Len()
	if uint64(id) > entry.MaxID {
		return 0, fmt.Errorf("%w: log is full at %d entries", ErrInvalidArgument, id)
	}

	h, err := entry.NewHeader(uint32(id), payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	header, err := entry.EncodeHeaderToBytes(&h)
	if err != nil {
		return 0, err
	}

	size, err := s.writeToFile(header, payload)
	if err != nil {
		return 0, fmt.Errorf("%w: append entry %d: %w", ErrIO, id, err)
	}

	// A failure before this point leaves the in-memory index as it was, even
	// if some bytes reached the file.
	s.index.Append(entry.Metadata{
		ID:     id,
		Offset: size - int64(len(payload)),
		Length: h.Length,
	})

	s.logger.Debug("appended entry", "id", id, "bytes", len(payload))
	return id, nil
}

// writeToFile appends header and payload with a fresh synchronous handle and
// returns the file size afterwards.
func (s *Store) writeToFile(header, payload []byte) (int64, error) {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY|os.O_SYNC, s.fileMode)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return 0, err
	}
	if _, err := f.Write(payload); err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	return info.Size(), nil
}

// Read returns a Handle for entry id. No lock is taken and no bytes are read
// until Handle.CopyTo.
func (s *Store) Read(id int) (*Handle, error) {
	if err := s.ensureIsRunning(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	md, ok := s.index.Lookup(id)
	next := s.index.Len()
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: id %d is outside [0, %d)", ErrInvalidArgument, id, next)
	}

	return &Handle{store: s, md: md}, nil
}

// ReadRange is not supported; reads are one entry at a time.
func (s *Store) ReadRange(startID, count int) ([]*Handle, error) {
	if err := s.ensureIsRunning(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("read range [%d, +%d): %w", startID, count, ErrUnsupported)
}

// ShutDown waits for in-flight reads and writes, then takes the write lock
// and never gives it back. The store moves to StateStopped. Appends and
// Handle.CopyTo block forever from then on; NextID and Read fail with
// ErrIllegalState. Calling ShutDown again is a no-op.
func (s *Store) ShutDown() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.state.Store(int32(StateStopped))
		s.releaseProcessLock()
		s.logger.Debug("log store shut down", "entries", s.index.Len())
	})
}

func (s *Store) releaseProcessLock() {
	if s.lockFile != nil {
		lock.UnlockFile(s.lockFile)
		s.lockFile = nil
	}
}
