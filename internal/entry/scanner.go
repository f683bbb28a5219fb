package entry

import (
	"errors"
	"fmt"
	"io"
)

// Metadata locates the payload of one entry inside a log file.
type Metadata struct {
	ID     int
	Offset int64  // Byte offset of the first payload byte
	Length uint32 // Size of the payload in bytes
}

// Scanner walks a log from its first byte and yields the metadata of every
// entry, verifying each payload checksum and that identifiers run 0, 1, 2, ...
// without gaps.
//
// A Scanner makes a single pass. Once Next has returned io.EOF or an error it
// keeps returning that value; scanning again requires a new reader positioned
// at the start of the log.
type Scanner struct {
	r      io.Reader
	pos    int64
	count  int
	err    error
	header [HeaderSizeBytes]byte
}

// NewScanner returns a Scanner reading entries from r. r should not be buffered
// by the caller beyond what the underlying file needs.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: r}
}

// Next returns the metadata of the next entry. It returns io.EOF when the log
// ends exactly on an entry boundary. Any other ending, a checksum mismatch or
// an out of sequence identifier yields an error wrapping ErrCorrupt.
func (s *Scanner) Next() (Metadata, error) {
	if s.err != nil {
		return Metadata{}, s.err
	}

	md, err := s.next()
	if err != nil {
		s.err = err
		return Metadata{}, err
	}

	s.count++
	return md, nil
}

// Count reports how many entries have been produced so far.
func (s *Scanner) Count() int {
	return s.count
}

// Position reports the number of bytes consumed so far.
func (s *Scanner) Position() int64 {
	return s.pos
}

func (s *Scanner) next() (Metadata, error) {
	// io.ReadFull keeps reading through zero-length reads and reports io.EOF
	// only when nothing at all was read.
	n, err := io.ReadFull(s.r, s.header[:])
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return Metadata{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Metadata{}, fmt.Errorf("%w: truncated header at offset %d (%d of %d bytes)", ErrCorrupt, s.pos, n, HeaderSizeBytes)
		default:
			return Metadata{}, err
		}
	}

	h, err := DecodeHeaderFromBytes(s.header[:])
	if err != nil {
		return Metadata{}, fmt.Errorf("offset %d: %w", s.pos, err)
	}
	s.pos += HeaderSizeBytes

	md := Metadata{
		ID:     int(h.ID),
		Offset: s.pos,
		Length: h.Length,
	}

	if err := h.Verify(s.r); err != nil {
		return Metadata{}, err
	}
	s.pos += int64(h.Length)

	if int64(h.ID) != int64(s.count) {
		return Metadata{}, fmt.Errorf("%w: entry at offset %d has id %d, want %d", ErrCorrupt, md.Offset-HeaderSizeBytes, h.ID, s.count)
	}

	return md, nil
}
