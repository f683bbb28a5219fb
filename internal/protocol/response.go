package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Status is the outcome code carried by every response.
type Status uint8

const (
	StatusOK Status = iota
	StatusCreated
	StatusNotFound
	StatusConflict
	StatusBadRequest
	StatusMethodNotAllowed // PUT with an identifier that is not the next one
	StatusTooLarge
	StatusUnavailable
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusCreated:
		return "CREATED"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusConflict:
		return "CONFLICT"
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case StatusTooLarge:
		return "TOO_LARGE"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("STATUS(%d)", uint8(s))
	}
}

// Response is a decoded server reply.
type Response struct {
	Status Status
	Body   []byte
}

// EncodeResponse serializes a reply as <status:uint8><body_len:uint32><body>.
func EncodeResponse(status Status, body []byte) ([]byte, error) {
	if len(body) > MaxPayloadBytes {
		return nil, fmt.Errorf("response body is %d bytes, limit is %d", len(body), MaxPayloadBytes)
	}

	buf := &bytes.Buffer{}

	buf.WriteByte(uint8(status))
	if err := binary.Write(buf, binary.BigEndian, uint32(len(body))); err != nil {
		return nil, err
	}

	buf.Write(body)

	return buf.Bytes(), nil
}

func DecodeResponse(r io.Reader) (*Response, error) {
	var status uint8
	var bodyLen uint32

	if err := binary.Read(r, binary.BigEndian, &status); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &bodyLen); err != nil {
		return nil, err
	}
	if bodyLen > MaxPayloadBytes {
		return nil, fmt.Errorf("response body length %d exceeds %d", bodyLen, MaxPayloadBytes)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return &Response{Status: Status(status), Body: body}, nil
}
