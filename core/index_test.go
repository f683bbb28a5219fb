package core

import (
	"testing"

	"github.com/0xRadioAc7iv/go-filelog/internal/entry"
)

func TestIndexLookup(t *testing.T) {
	var ix Index

	if _, ok := ix.Lookup(0); ok {
		t.Fatal("empty index was not supposed to find id 0")
	}

	for id := 0; id < 3; id++ {
		ix.Append(entry.Metadata{ID: id, Offset: int64(id * 100), Length: uint32(id)})
	}

	if ix.Len() != 3 {
		t.Fatalf("expected length 3, got %d", ix.Len())
	}

	for id := 0; id < 3; id++ {
		md, ok := ix.Lookup(id)
		if !ok || md.ID != id || md.Offset != int64(id*100) {
			t.Errorf("Lookup(%d) = %+v, %v", id, md, ok)
		}
	}

	for _, id := range []int{-1, 3, 42} {
		if _, ok := ix.Lookup(id); ok {
			t.Errorf("Lookup(%d) was not supposed to succeed", id)
		}
	}

	ix.reset()
	if ix.Len() != 0 {
		t.Fatalf("expected empty index after reset, got %d", ix.Len())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateNotStarted: "not-started",
		StateRunning:    "running",
		StateStopped:    "stopped",
		State(9):        "unknown",
	}

	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}
