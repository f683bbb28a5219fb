package core

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/0xRadioAc7iv/go-filelog/internal/entry"
)

// Handle refers to one entry of a Store. It holds the entry's location only;
// the payload is read from disk each time CopyTo runs. Handles are cheap to
// create, safe to share between goroutines and may be kept indefinitely.
type Handle struct {
	store *Store
	md    entry.Metadata
}

// ID returns the identifier of the entry.
func (h *Handle) ID() int {
	return h.md.ID
}

// Size returns the payload length in bytes.
func (h *Handle) Size() int64 {
	return int64(h.md.Length)
}

// CopyTo streams the payload to w in chunks of at most CopyWindowBytes and
// returns the number of bytes written. It holds the store's read lock while it
// runs, so any number of CopyTo calls proceed together but none overlaps an
// append. w is neither buffered nor closed.
func (h *Handle) CopyTo(w io.Writer) (int64, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	f, err := os.Open(h.store.path)
	if err != nil {
		return 0, fmt.Errorf("%w: read entry %d: %w", ErrIO, h.md.ID, err)
	}
	defer f.Close()

	if _, err := f.Seek(h.md.Offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: read entry %d: %w", ErrIO, h.md.ID, err)
	}

	var written int64
	left := int64(h.md.Length)
	buf := make([]byte, min(left, CopyWindowBytes))

	for left > 0 {
		n, err := f.Read(buf[:min(left, int64(len(buf)))])
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, fmt.Errorf("copy entry %d: %w", h.md.ID, werr)
			}
			written += int64(n)
			left -= int64(n)
		}

		if left == 0 {
			break
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return written, fmt.Errorf("%w: entry %d ended after %d of %d bytes", ErrIO, h.md.ID, written, h.md.Length)
			}
			return written, fmt.Errorf("%w: read entry %d: %w", ErrIO, h.md.ID, err)
		}
	}

	return written, nil
}
