// Package catalog records which named logs exist and where their files live,
// so that a restarted server can reopen them.
package catalog

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

var (
	ErrExists   = errors.New("log already registered")
	ErrNotFound = errors.New("log not registered")
)

const keyPrefix = "log/"

// Catalog is a durable name -> log file path map stored in a Pebble database.
type Catalog struct {
	mu sync.Mutex
	db *pebble.DB
}

// Open creates or opens the catalog database in dir.
func Open(dir string) (*Catalog, error) {
	if dir == "" {
		return nil, errors.New("catalog: directory is required")
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", dir, err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func key(name string) []byte {
	return []byte(keyPrefix + name)
}

// Register durably records that name is stored at path. It fails with
// ErrExists if name is already present.
func (c *Catalog) Register(name, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.get(name); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	return c.db.Set(key(name), []byte(path), pebble.Sync)
}

// Lookup returns the file path registered for name.
func (c *Catalog) Lookup(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.get(name)
}

func (c *Catalog) get(name string) (string, error) {
	val, closer, err := c.db.Get(key(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", err
	}
	defer closer.Close()

	return string(val), nil
}

// Entries returns every registered name with its path, ordered by name.
func (c *Catalog) Entries() (map[string]string, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixEnd([]byte(keyPrefix)),
	})
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	paths := make(map[string]string)
	names := []string{}

	for it.First(); it.Valid(); it.Next() {
		name := string(it.Key()[len(keyPrefix):])
		paths[name] = string(it.Value())
		names = append(names, name)
	}

	return paths, names, nil
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
