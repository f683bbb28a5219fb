package entry

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func buildLog(t *testing.T, ids []uint32, payloads [][]byte) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	for i, id := range ids {
		encoded, err := EncodeEntryToBytes(id, payloads[i])
		if err != nil {
			t.Fatalf("encode entry %d: %v", id, err)
		}
		buf.Write(encoded)
	}
	return buf.Bytes()
}

// stutterReader returns a zero-length read before every real one and hands
// out at most one byte at a time.
type stutterReader struct {
	r     io.Reader
	stall bool
}

func (s *stutterReader) Read(p []byte) (int, error) {
	s.stall = !s.stall
	if s.stall || len(p) == 0 {
		return 0, nil
	}
	return s.r.Read(p[:1])
}

func scanAll(s *Scanner) ([]Metadata, error) {
	var out []Metadata
	for {
		md, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, md)
	}
}

func TestScannerEmptyLog(t *testing.T) {
	s := NewScanner(bytes.NewReader(nil))

	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF on empty log, got %v", err)
	}
}

func TestScannerYieldsOffsets(t *testing.T) {
	payloads := [][]byte{[]byte("a"), {}, []byte("three")}
	data := buildLog(t, []uint32{0, 1, 2}, payloads)

	got, err := scanAll(NewScanner(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := []Metadata{
		{ID: 0, Offset: HeaderSizeBytes, Length: 1},
		{ID: 1, Offset: 2*HeaderSizeBytes + 1, Length: 0},
		{ID: 2, Offset: 3*HeaderSizeBytes + 1, Length: 5},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
		if string(data[got[i].Offset:got[i].Offset+int64(got[i].Length)]) != string(payloads[i]) {
			t.Errorf("record %d offset does not point at its payload", i)
		}
	}
}

func TestScannerToleratesZeroLengthReads(t *testing.T) {
	data := buildLog(t, []uint32{0, 1}, [][]byte{[]byte("first"), []byte("second")})

	got, err := scanAll(NewScanner(&stutterReader{r: bytes.NewReader(data)}))
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
}

func TestScannerCorruption(t *testing.T) {
	payloads := [][]byte{[]byte("zero"), []byte("one"), []byte("two")}

	tests := []struct {
		name   string
		mutate func(data []byte) []byte
	}{
		{
			name: "truncated header",
			mutate: func(data []byte) []byte {
				return data[:len(data)-len("two")-HeaderSizeBytes+10]
			},
		},
		{
			name: "truncated payload",
			mutate: func(data []byte) []byte {
				return data[:len(data)-1]
			},
		},
		{
			name: "bit flip in payload",
			mutate: func(data []byte) []byte {
				data[HeaderSizeBytes+1] ^= 0x04
				return data
			},
		},
		{
			name: "unknown type byte",
			mutate: func(data []byte) []byte {
				data[HeaderSizeBytes+len("zero")] = 9
				return data
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.mutate(buildLog(t, []uint32{0, 1, 2}, payloads))

			_, err := scanAll(NewScanner(bytes.NewReader(data)))
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestScannerRejectsOutOfSequenceID(t *testing.T) {
	data := buildLog(t, []uint32{0, 1, 5}, [][]byte{[]byte("a"), []byte("b"), []byte("c")})

	s := NewScanner(bytes.NewReader(data))
	got, err := scanAll(s)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the two valid records before the failure, got %d", len(got))
	}
}

func TestScannerIsSinglePass(t *testing.T) {
	data := buildLog(t, []uint32{0}, [][]byte{[]byte("only")})
	s := NewScanner(bytes.NewReader(data))

	if _, err := s.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.Next(); err != io.EOF {
			t.Fatalf("Next after end #%d = %v, want io.EOF", i, err)
		}
	}

	bad := NewScanner(bytes.NewReader(data[:5]))
	_, first := bad.Next()
	_, second := bad.Next()
	if !errors.Is(first, ErrCorrupt) || first != second {
		t.Fatalf("expected the same corruption error twice, got %v then %v", first, second)
	}
	if bad.Count() != 0 || s.Count() != 1 {
		t.Fatalf("unexpected counts: bad=%d good=%d", bad.Count(), s.Count())
	}
}
