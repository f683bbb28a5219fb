package server_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/0xRadioAc7iv/go-filelog/core"
	"github.com/0xRadioAc7iv/go-filelog/internal/catalog"
	"github.com/0xRadioAc7iv/go-filelog/internal/config"
	"github.com/0xRadioAc7iv/go-filelog/internal/protocol"
	"github.com/0xRadioAc7iv/go-filelog/internal/server"
	"github.com/0xRadioAc7iv/go-filelog/internal/service"
)

var discard = slog.New(slog.DiscardHandler)

func newHandler(t *testing.T) *server.Handler {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir

	cat, err := catalog.Open(filepath.Join(dir, service.CatalogDirName))
	if err != nil {
		t.Fatal(err)
	}

	svc, err := service.New(cfg, cat, discard)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.ShutDown() })

	return server.NewHandler(svc, discard)
}

func TestHandle(t *testing.T) {
	h := newHandler(t)

	steps := []struct {
		name   string
		cmd    protocol.Command
		status protocol.Status
		body   string
	}{
		{"ping", protocol.Command{Cmd: "PING"}, protocol.StatusOK, "PONG!"},
		{"empty list", protocol.Command{Cmd: "list"}, protocol.StatusOK, "nil"},
		{"create", protocol.Command{Cmd: "create", Log: "orders"}, protocol.StatusCreated, "ok"},
		{"create again", protocol.Command{Cmd: "create", Log: "orders"}, protocol.StatusConflict, ""},
		{"create invalid", protocol.Command{Cmd: "create", Log: "Bad Name"}, protocol.StatusBadRequest, ""},
		{"nextid empty", protocol.Command{Cmd: "nextid", Log: "orders"}, protocol.StatusOK, "0"},
		{"append", protocol.Command{Cmd: "append", Log: "orders", Payload: []byte("first")}, protocol.StatusCreated, "0"},
		{"put next", protocol.Command{Cmd: "put", Log: "orders", ID: 1, Payload: []byte("second")}, protocol.StatusCreated, "ok"},
		{"put stale", protocol.Command{Cmd: "put", Log: "orders", ID: 1, Payload: []byte("late")}, protocol.StatusMethodNotAllowed, "2"},
		{"get", protocol.Command{Cmd: "get", Log: "orders", ID: 1}, protocol.StatusOK, "second"},
		{"get out of range", protocol.Command{Cmd: "get", Log: "orders", ID: 9}, protocol.StatusBadRequest, ""},
		{"get negative", protocol.Command{Cmd: "get", Log: "orders", ID: -1}, protocol.StatusBadRequest, ""},
		{"get unknown log", protocol.Command{Cmd: "get", Log: "nope", ID: 0}, protocol.StatusNotFound, ""},
		{"nextid", protocol.Command{Cmd: "nextid", Log: "orders"}, protocol.StatusOK, "2"},
		{"list", protocol.Command{Cmd: "list"}, protocol.StatusOK, "orders"},
		{"unknown", protocol.Command{Cmd: "frobnicate"}, protocol.StatusBadRequest, "Invalid Command"},
	}

	for _, step := range steps {
		status, body := h.Handle(&step.cmd)
		if status != step.status {
			t.Fatalf("%s: status %v, want %v (body %q)", step.name, status, step.status, body)
		}
		if step.body != "" && string(body) != step.body {
			t.Fatalf("%s: body %q, want %q", step.name, body, step.body)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want protocol.Status
	}{
		{nil, protocol.StatusOK},
		{fmt.Errorf("x: %w", service.ErrLogNotFound), protocol.StatusNotFound},
		{fmt.Errorf("x: %w", service.ErrLogExists), protocol.StatusConflict},
		{fmt.Errorf("%w: %w", core.ErrInvalidArgument, service.ErrPayloadTooLarge), protocol.StatusTooLarge},
		{service.ErrInvalidName, protocol.StatusBadRequest},
		{core.ErrInvalidArgument, protocol.StatusBadRequest},
		{core.ErrIllegalState, protocol.StatusUnavailable},
		{core.ErrIO, protocol.StatusError},
		{errors.New("boom"), protocol.StatusError},
	}

	for _, tt := range tests {
		if got := server.StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestServeConn(t *testing.T) {
	h := newHandler(t)

	client, srv := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		h.ServeConn(srv)
		close(done)
	}()

	send := func(c protocol.Command) *protocol.Response {
		t.Helper()

		payload, err := protocol.EncodeCommand(&c)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := client.Write(payload); err != nil {
			t.Fatal(err)
		}
		resp, err := protocol.DecodeResponse(client)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	if resp := send(protocol.Command{Cmd: "create", Log: "a"}); resp.Status != protocol.StatusCreated {
		t.Fatalf("create: %v %q", resp.Status, resp.Body)
	}
	if resp := send(protocol.Command{Cmd: "append", Log: "a", Payload: []byte("x")}); string(resp.Body) != "0" {
		t.Fatalf("append: %v %q", resp.Status, resp.Body)
	}
	if resp := send(protocol.Command{Cmd: "get", Log: "a", ID: 0}); string(resp.Body) != "x" {
		t.Fatalf("get: %v %q", resp.Status, resp.Body)
	}

	client.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeConn did not return after the client disconnected")
	}
}

func TestListenAndServe(t *testing.T) {
	ln, err := server.Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	served := make(chan net.Conn, 1)
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, ln, func(conn net.Conn) { served <- conn }, discard)
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case c := <-served:
		c.Close()
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected graceful shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenSkipsBusyPort(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer busy.Close()

	port := busy.Addr().(*net.TCPAddr).Port

	ln, err := server.Listen("127.0.0.1", port)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, got, _ := net.SplitHostPort(ln.Addr().String())
	if got == strconv.Itoa(port) {
		t.Fatalf("expected a different port than the busy %d", port)
	}
}

func TestServeClosesOpenConnections(t *testing.T) {
	ln, err := server.Listen("127.0.0.1", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	accepted := make(chan struct{})
	handlerDone := make(chan struct{})
	handler := func(conn net.Conn) {
		defer close(handlerDone)
		close(accepted)

		buf := make([]byte, 1)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln, handler, discard) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected graceful shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return while a client stayed connected")
	}

	select {
	case <-handlerDone:
	default:
		t.Fatal("Serve returned before the connection handler finished")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected the server side to have closed the connection")
	}
}
