// Package service multiplexes many named log stores behind one process. It is
// the layer both the TCP and the HTTP front ends talk to.
package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"

	"github.com/0xRadioAc7iv/go-filelog/core"
	"github.com/0xRadioAc7iv/go-filelog/internal/catalog"
	"github.com/0xRadioAc7iv/go-filelog/internal/config"
	"github.com/0xRadioAc7iv/go-filelog/internal/utils"
)

// Errors callers translate into client-visible statuses.
var (
	ErrLogNotFound     = errors.New("log not found")
	ErrLogExists       = errors.New("log already exists")
	ErrInvalidName     = errors.New("invalid log name")
	ErrPayloadTooLarge = errors.New("payload too large")
)

const (
	LogsDirName    = "logs"
	CatalogDirName = "catalog"
	LogFileExt     = ".log"
)

// Registry persists the name -> file mapping of created logs.
type Registry interface {
	Register(name, path string) error
	Entries() (map[string]string, []string, error)
}

type Service struct {
	registry   Registry
	logger     *slog.Logger
	nameRe     *regexp.Regexp
	logsDir    string
	maxPayload int

	mu   sync.RWMutex
	logs map[string]*core.Store
}

// New prepares the logs directory under cfg.DataDir. Call Restore to reopen
// logs created by earlier runs.
func New(cfg config.Config, registry Registry, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nameRe, err := regexp.Compile(cfg.NameRegex)
	if err != nil {
		return nil, err
	}

	logsDir := filepath.Join(cfg.DataDir, LogsDirName)
	if !utils.PathExists(logsDir) {
		logger.Info("logs directory does not exist, creating one", "dir", logsDir)

		// 0 (special bit - ignored), 7 (rwx - owner), 5 (r-x - user group), 5 (r-x - others)
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, err
		}
	}

	return &Service{
		registry:   registry,
		logger:     logger,
		nameRe:     nameRe,
		logsDir:    logsDir,
		maxPayload: cfg.MaxPayloadBytes,
		logs:       make(map[string]*core.Store),
	}, nil
}

// Restore starts every log recorded in the registry. A log that fails to
// start is left out and reported; the others are still served.
func (s *Service) Restore() error {
	paths, names, err := s.registry.Entries()
	if err != nil {
		return err
	}

	var errs []error

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		if _, ok := s.logs[name]; ok {
			continue
		}

		store := s.openStore(name, paths[name])
		if err := store.Start(); err != nil {
			s.logger.Error("could not restore log", "name", name, "error", err)
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
			continue
		}

		s.logs[name] = store

		next, err := store.NextID()
		if err != nil {
			s.logger.Warn("restored log but could not count its entries", "name", name, "error", err)
			continue
		}
		s.logger.Info("restored log", "name", name, "entries", next)
	}

	return errors.Join(errs...)
}

func (s *Service) openStore(name, path string) *core.Store {
	return core.Open(path,
		core.WithProcessLock(),
		core.WithLogger(s.logger.With("log", name)),
	)
}

// Create starts an empty log called name and registers it. A file already
// sitting at the log's path is never adopted; Create fails with ErrLogExists
// instead.
func (s *Service) Create(name string) error {
	if !s.nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logs[name]; ok {
		return fmt.Errorf("%w: %s", ErrLogExists, name)
	}

	path := filepath.Join(s.logsDir, name+LogFileExt)
	if utils.PathExists(path) {
		return fmt.Errorf("%w: %s: file %s is already present", ErrLogExists, name, path)
	}

	store := s.openStore(name, path)
	if err := store.Start(); err != nil {
		return err
	}

	if err := s.registry.Register(name, path); err != nil {
		store.ShutDown()
		if errors.Is(err, catalog.ErrExists) {
			return fmt.Errorf("%w: %s", ErrLogExists, name)
		}
		return err
	}

	s.logs[name] = store
	s.logger.Info("created log", "name", name, "path", path)
	return nil
}

func (s *Service) store(name string) (*core.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, ok := s.logs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLogNotFound, name)
	}
	return store, nil
}

func (s *Service) checkPayload(payload []byte) error {
	if len(payload) > s.maxPayload {
		return fmt.Errorf("%w: %w: %d bytes exceeds %d", core.ErrInvalidArgument, ErrPayloadTooLarge, len(payload), s.maxPayload)
	}
	return nil
}

// MaxPayloadBytes is the largest payload Append and Put accept.
func (s *Service) MaxPayloadBytes() int {
	return s.maxPayload
}

// NextID returns the identifier the next entry of log name will receive.
func (s *Service) NextID(name string) (int, error) {
	store, err := s.store(name)
	if err != nil {
		return 0, err
	}
	return store.NextID()
}

// Append adds payload to log name and returns its identifier.
func (s *Service) Append(name string, payload []byte) (int, error) {
	store, err := s.store(name)
	if err != nil {
		return 0, err
	}
	if err := s.checkPayload(payload); err != nil {
		return 0, err
	}
	return store.Append(payload)
}

// Put appends payload to log name only if it would receive id. A false result
// means another writer got there first.
func (s *Service) Put(name string, id int, payload []byte) (bool, error) {
	store, err := s.store(name)
	if err != nil {
		return false, err
	}
	if err := s.checkPayload(payload); err != nil {
		return false, err
	}
	return store.AppendExpectingID(payload, id)
}

// Handle returns a handle for entry id of log name.
func (s *Service) Handle(name string, id int) (*core.Handle, error) {
	store, err := s.store(name)
	if err != nil {
		return nil, err
	}
	return store.Read(id)
}

// Get copies entry id of log name to w.
func (s *Service) Get(name string, id int, w io.Writer) (int64, error) {
	h, err := s.Handle(name, id)
	if err != nil {
		return 0, err
	}
	return h.CopyTo(w)
}

// Names lists the served logs in lexical order.
func (s *Service) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.logs))
	for name := range s.logs {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// ShutDown stops every log and closes the registry if it is closable. Logs
// are left permanently locked; the Service must not be used afterwards.
func (s *Service) ShutDown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, store := range s.logs {
		store.ShutDown()
		s.logger.Info("log shut down", "name", name)
	}

	if c, ok := s.registry.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
