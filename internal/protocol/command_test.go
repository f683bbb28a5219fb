package protocol_test

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/0xRadioAc7iv/go-filelog/internal/protocol"
)

func TestEncodeDecodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  protocol.Command
	}{
		{"APPEND command", protocol.Command{Cmd: "append", Log: "orders", Payload: []byte("bar")}},
		{"GET command", protocol.Command{Cmd: "get", Log: "orders", ID: 42}},
		{"PUT command", protocol.Command{Cmd: "put", Log: "orders", ID: 7, Payload: []byte{0, 1, 2}}},
		{"LIST command", protocol.Command{Cmd: "list"}},
		{"empty log and payload", protocol.Command{Cmd: "ping"}},
		{"unicode log name", protocol.Command{Cmd: "create", Log: "🚀🔥"}},
		{"large payload", protocol.Command{Cmd: "append", Log: "big", Payload: make([]byte, 1024)}},
		{"negative id", protocol.Command{Cmd: "get", Log: "x", ID: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			payload, err := protocol.EncodeCommand(&tt.cmd)
			if err != nil {
				t.Fatalf("EncodeCommand failed: %v", err)
			}

			go func() {
				_, _ = client.Write(payload)
			}()

			cmd, err := protocol.DecodeCommand(server)
			if err != nil {
				t.Fatalf("DecodeCommand failed: %v", err)
			}

			if cmd.Cmd != tt.cmd.Cmd {
				t.Errorf("Cmd mismatch: got %q, want %q", cmd.Cmd, tt.cmd.Cmd)
			}
			if cmd.Log != tt.cmd.Log {
				t.Errorf("Log mismatch: got %q, want %q", cmd.Log, tt.cmd.Log)
			}
			if cmd.ID != tt.cmd.ID {
				t.Errorf("ID mismatch: got %d, want %d", cmd.ID, tt.cmd.ID)
			}
			if !bytes.Equal(cmd.Payload, tt.cmd.Payload) {
				t.Errorf("Payload mismatch: got %q, want %q", cmd.Payload, tt.cmd.Payload)
			}
		})
	}
}

func TestEncodeCommand_RejectsLongCommandName(t *testing.T) {
	if _, err := protocol.EncodeCommand(&protocol.Command{Cmd: string(make([]byte, 256))}); err == nil {
		t.Fatal("expected error for a 256 byte command name")
	}
}

func TestDecodeCommand_RejectsOversizedLengths(t *testing.T) {
	header := &bytes.Buffer{}
	header.WriteByte(3)
	binary.Write(header, binary.BigEndian, uint32(1))
	binary.Write(header, binary.BigEndian, int64(0))
	binary.Write(header, binary.BigEndian, uint32(protocol.MaxPayloadBytes+1))

	if _, err := protocol.DecodeCommand(bytes.NewReader(header.Bytes())); err == nil {
		t.Fatal("expected error for oversized payload length")
	}
}

func TestDecodeCommand_TruncatedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeCommand(&protocol.Command{Cmd: "append", Log: "key", Payload: []byte("value")})
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	// Write only part of the payload
	go func() {
		_, _ = client.Write(payload[:len(payload)/2])
		client.Close()
	}()

	if _, err := protocol.DecodeCommand(server); err == nil {
		t.Fatalf("expected error on truncated payload, got nil")
	}
}

func TestDecodeCommand_BlocksUntilComplete(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	payload, err := protocol.EncodeCommand(&protocol.Command{Cmd: "get", Log: "foo"})
	if err != nil {
		t.Fatalf("EncodeCommand failed: %v", err)
	}

	done := make(chan struct{})

	go func() {
		_, _ = protocol.DecodeCommand(server)
		close(done)
	}()

	// Ensure decoder is blocked
	select {
	case <-done:
		t.Fatal("DecodeCommand returned early")
	case <-time.After(50 * time.Millisecond):
	}

	_, _ = client.Write(payload)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("DecodeCommand did not return after full payload")
	}
}
