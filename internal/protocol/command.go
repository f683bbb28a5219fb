package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxPayloadBytes bounds the payload of a single frame in either direction.
const MaxPayloadBytes = 64 * 1024 * 1024

// MaxLogNameBytes bounds the log name carried by a command.
const MaxLogNameBytes = 1024

// Command represents a decoded client command received by the filelog server.
//
// A Command consists of a command name (Cmd), an optional log name, an
// optional entry identifier and an optional payload. The meaning of Log, ID
// and Payload depends on the command type (e.g. CREATE, APPEND, GET, PUT).
type Command struct {
	Cmd     string // Command name (e.g. "append", "get", "put")
	Log     string // Log name (may be empty)
	ID      int64  // Entry identifier (GET and PUT only)
	Payload []byte // Entry payload (APPEND and PUT only)
}

// EncodeCommand serializes a client command into its wire format.
//
// The command is encoded as:
//
//	<cmd_len:uint8><log_len:uint32><id:int64><payload_len:uint32><cmd><log><payload>
//
// All integer fields are encoded using big-endian byte order.
// The command name length is limited to 255 bytes.
//
// The returned byte slice is suitable for writing directly to a TCP
// connection.
func EncodeCommand(c *Command) ([]byte, error) {
	cmdB := []byte(c.Cmd)
	logB := []byte(c.Log)

	if len(cmdB) > 255 {
		return nil, fmt.Errorf("command name is %d bytes, limit is 255", len(cmdB))
	}
	if len(logB) > MaxLogNameBytes {
		return nil, fmt.Errorf("log name is %d bytes, limit is %d", len(logB), MaxLogNameBytes)
	}
	if len(c.Payload) > MaxPayloadBytes {
		return nil, fmt.Errorf("payload is %d bytes, limit is %d", len(c.Payload), MaxPayloadBytes)
	}

	buf := &bytes.Buffer{}

	buf.WriteByte(uint8(len(cmdB)))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(logB))); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, c.ID); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.BigEndian, uint32(len(c.Payload))); err != nil {
		return nil, err
	}

	buf.Write(cmdB)
	buf.Write(logB)
	buf.Write(c.Payload)

	return buf.Bytes(), nil
}

// DecodeCommand reads and decodes a command from a connection.
//
// It first reads the fixed-size header fields, then reads the command name,
// log name and payload in sequence.
//
// DecodeCommand blocks until the full command has been read or an
// error occurs. Oversized length fields are rejected before any allocation.
func DecodeCommand(r io.Reader) (*Command, error) {
	var cmdLen uint8
	var logLen uint32
	var id int64
	var payloadLen uint32

	if err := binary.Read(r, binary.BigEndian, &cmdLen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &logLen); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &id); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &payloadLen); err != nil {
		return nil, err
	}

	if logLen > MaxLogNameBytes {
		return nil, fmt.Errorf("log name length %d exceeds %d", logLen, MaxLogNameBytes)
	}
	if payloadLen > MaxPayloadBytes {
		return nil, fmt.Errorf("payload length %d exceeds %d", payloadLen, MaxPayloadBytes)
	}

	cmdB := make([]byte, cmdLen)
	logB := make([]byte, logLen)
	payload := make([]byte, payloadLen)

	if _, err := io.ReadFull(r, cmdB); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, logB); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	return &Command{
		Cmd:     string(cmdB),
		Log:     string(logB),
		ID:      id,
		Payload: payload,
	}, nil
}
