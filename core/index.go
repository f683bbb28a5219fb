package core

import "github.com/0xRadioAc7iv/go-filelog/internal/entry"

// Index is the in-memory table from entry identifier to its payload location.
//
// Position in the table is the identifier: the record at position i always has
// ID i. The Index is rebuilt on startup by replaying the log file and extended
// after every successful append. It is not safe for concurrent use on its own;
// the Store guards it with its read-write mutex.
type Index struct {
	entries []entry.Metadata
}

// Append adds md as the next record. The caller guarantees md.ID == Len().
func (ix *Index) Append(md entry.Metadata) {
	ix.entries = append(ix.entries, md)
}

// Lookup returns the record for id, or false if id is outside [0, Len()).
func (ix *Index) Lookup(id int) (entry.Metadata, bool) {
	if id < 0 || id >= len(ix.entries) {
		return entry.Metadata{}, false
	}
	return ix.entries[id], true
}

// Len is the number of indexed entries, which is also the next identifier.
func (ix *Index) Len() int {
	return len(ix.entries)
}

func (ix *Index) reset() {
	ix.entries = nil
}
