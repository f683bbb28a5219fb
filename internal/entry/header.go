// Package entry implements the on-disk layout of a single log entry and the
// sequential scanner used to rebuild a log's index on startup.
//
// Every entry is laid out as
//
//	<type:uint8><id:uint32><sha256:[32]byte><length:uint32><payload>
//
// with all integers big-endian. There is no file header and no separator
// between entries.
package entry

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// TypeData is the only entry type written today. Other values are reserved.
const TypeData uint8 = 0

// Type (1) + ID (4) + SHA-256 (32) + Length (4)
const HeaderSizeBytes = 1 + 4 + ChecksumSizeBytes + 4

// MaxID is the largest identifier the header can carry.
const MaxID = math.MaxUint32

// MaxPayloadSizeBytes is the largest payload the header can describe.
const MaxPayloadSizeBytes = math.MaxUint32

// ErrCorrupt is returned when bytes read back from a log do not form a valid
// entry: unknown type, truncated header or payload, or a checksum mismatch.
var ErrCorrupt = errors.New("corrupt log entry")

// Header is the fixed-size prefix of every entry.
type Header struct {
	Type     uint8
	ID       uint32
	Checksum [ChecksumSizeBytes]byte
	Length   uint32 // Length of the payload in bytes
}

// NewHeader builds the header describing payload stored under id.
func NewHeader(id uint32, payload []byte) (Header, error) {
	if uint64(len(payload)) > MaxPayloadSizeBytes {
		return Header{}, fmt.Errorf("payload of %d bytes exceeds the maximum entry size", len(payload))
	}

	return Header{
		Type:     TypeData,
		ID:       id,
		Checksum: Checksum(payload),
		Length:   uint32(len(payload)),
	}, nil
}

// EncodeHeaderToBytes serializes h into its HeaderSizeBytes wire form.
func EncodeHeaderToBytes(h *Header) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Grow(HeaderSizeBytes)

	if err := buf.WriteByte(h.Type); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, h.ID); err != nil {
		return nil, err
	}
	if _, err := buf.Write(h.Checksum[:]); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, h.Length); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeHeaderFromBytes parses the first HeaderSizeBytes of data.
func DecodeHeaderFromBytes(data []byte) (*Header, error) {
	if len(data) < HeaderSizeBytes {
		return nil, fmt.Errorf("%w: header is %d bytes, want %d", ErrCorrupt, len(data), HeaderSizeBytes)
	}

	h := &Header{}
	buf := bytes.NewReader(data[:HeaderSizeBytes])

	if err := binary.Read(buf, binary.BigEndian, &h.Type); err != nil {
		return nil, err
	}
	if h.Type != TypeData {
		return nil, fmt.Errorf("%w: unknown entry type %d", ErrCorrupt, h.Type)
	}
	if err := binary.Read(buf, binary.BigEndian, &h.ID); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(buf, h.Checksum[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(buf, binary.BigEndian, &h.Length); err != nil {
		return nil, err
	}

	return h, nil
}

// EncodeEntryToBytes returns the header for payload followed by the payload itself.
func EncodeEntryToBytes(id uint32, payload []byte) ([]byte, error) {
	h, err := NewHeader(id, payload)
	if err != nil {
		return nil, err
	}

	header, err := EncodeHeaderToBytes(&h)
	if err != nil {
		return nil, err
	}

	return append(header, payload...), nil
}

// Verify consumes exactly h.Length bytes from r and checks them against the
// stored digest without holding the whole payload in memory.
func (h *Header) Verify(r io.Reader) error {
	digest := sha256.New()

	n, err := io.CopyN(digest, r, int64(h.Length))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: entry %d payload truncated after %d of %d bytes", ErrCorrupt, h.ID, n, h.Length)
		}
		return err
	}

	if !bytes.Equal(digest.Sum(nil), h.Checksum[:]) {
		return fmt.Errorf("%w: entry %d checksum mismatch", ErrCorrupt, h.ID)
	}

	return nil
}
