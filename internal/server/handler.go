package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/0xRadioAc7iv/go-filelog/core"
	"github.com/0xRadioAc7iv/go-filelog/internal/protocol"
	"github.com/0xRadioAc7iv/go-filelog/internal/service"
)

// Handler answers protocol commands against a Service.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func NewHandler(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// ServeConn reads commands from conn until the client disconnects.
func (h *Handler) ServeConn(conn net.Conn) {
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	h.logger.Debug("client connected", "remote", remote)

	for {
		command, err := protocol.DecodeCommand(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("dropping client", "remote", remote, "error", err)
			}
			h.logger.Debug("client disconnected", "remote", remote)
			return
		}

		status, body := h.Handle(command)

		if err := h.reply(conn, status, body); err != nil {
			h.logger.Debug("client disconnected", "remote", remote, "error", err)
			return
		}
	}
}

// Handle executes one command and returns the reply.
func (h *Handler) Handle(command *protocol.Command) (protocol.Status, []byte) {
	switch strings.ToLower(command.Cmd) {
	case "ping":
		return protocol.StatusOK, []byte("PONG!")
	case "create":
		return h.handleCommandCreate(command.Log)
	case "nextid":
		return h.handleCommandNextID(command.Log)
	case "append":
		return h.handleCommandAppend(command.Log, command.Payload)
	case "get":
		return h.handleCommandGet(command.Log, command.ID)
	case "put":
		return h.handleCommandPut(command.Log, command.ID, command.Payload)
	case "list":
		return h.handleCommandList()
	case "help":
		return protocol.StatusOK, []byte(strings.TrimSpace(helpString))
	default:
		return protocol.StatusBadRequest, []byte("Invalid Command")
	}
}

func (h *Handler) handleCommandCreate(name string) (protocol.Status, []byte) {
	if err := h.svc.Create(name); err != nil {
		return h.failure("create", name, err)
	}
	return protocol.StatusCreated, []byte("ok")
}

func (h *Handler) handleCommandNextID(name string) (protocol.Status, []byte) {
	next, err := h.svc.NextID(name)
	if err != nil {
		return h.failure("nextid", name, err)
	}
	return protocol.StatusOK, []byte(strconv.Itoa(next))
}

func (h *Handler) handleCommandAppend(name string, payload []byte) (protocol.Status, []byte) {
	id, err := h.svc.Append(name, payload)
	if err != nil {
		return h.failure("append", name, err)
	}
	return protocol.StatusCreated, []byte(strconv.Itoa(id))
}

func (h *Handler) handleCommandGet(name string, id int64) (protocol.Status, []byte) {
	entryID, err := toEntryID(id)
	if err != nil {
		return h.failure("get", name, err)
	}

	var buf bytes.Buffer
	if _, err := h.svc.Get(name, entryID, &buf); err != nil {
		return h.failure("get", name, err)
	}
	return protocol.StatusOK, buf.Bytes()
}

func (h *Handler) handleCommandPut(name string, id int64, payload []byte) (protocol.Status, []byte) {
	entryID, err := toEntryID(id)
	if err != nil {
		return h.failure("put", name, err)
	}

	ok, err := h.svc.Put(name, entryID, payload)
	if err != nil {
		return h.failure("put", name, err)
	}

	if !ok {
		next, err := h.svc.NextID(name)
		if err != nil {
			return h.failure("put", name, err)
		}
		return protocol.StatusMethodNotAllowed, []byte(strconv.Itoa(next))
	}
	return protocol.StatusCreated, []byte("ok")
}

func (h *Handler) handleCommandList() (protocol.Status, []byte) {
	names := h.svc.Names()
	if len(names) == 0 {
		return protocol.StatusOK, []byte("nil")
	}
	return protocol.StatusOK, []byte(strings.Join(names, "\n"))
}

func toEntryID(id int64) (int, error) {
	if id < 0 || id > int64(core.MaxEntryID) {
		return 0, fmt.Errorf("%w: id %d", core.ErrInvalidArgument, id)
	}
	return int(id), nil
}

// failure logs err and turns it into a status and a one-line message.
func (h *Handler) failure(cmd, name string, err error) (protocol.Status, []byte) {
	status := StatusFor(err)
	if status == protocol.StatusError {
		h.logger.Error("command failed", "cmd", cmd, "log", name, "error", err)
	} else {
		h.logger.Debug("command refused", "cmd", cmd, "log", name, "status", status, "error", err)
	}
	return status, []byte(err.Error())
}

// StatusFor maps a service or store error onto a protocol status.
func StatusFor(err error) protocol.Status {
	switch {
	case err == nil:
		return protocol.StatusOK
	case errors.Is(err, service.ErrLogNotFound):
		return protocol.StatusNotFound
	case errors.Is(err, service.ErrLogExists):
		return protocol.StatusConflict
	case errors.Is(err, service.ErrPayloadTooLarge):
		return protocol.StatusTooLarge
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, core.ErrInvalidArgument):
		return protocol.StatusBadRequest
	case errors.Is(err, core.ErrIllegalState):
		return protocol.StatusUnavailable
	default:
		return protocol.StatusError
	}
}

func (h *Handler) reply(conn net.Conn, status protocol.Status, body []byte) error {
	encodedResponse, err := protocol.EncodeResponse(status, body)
	if err != nil {
		h.logger.Error("error encoding response", "error", err)
		encodedResponse, err = protocol.EncodeResponse(protocol.StatusError, []byte("response too large"))
		if err != nil {
			return err
		}
	}

	_, err = conn.Write(encodedResponse)
	return err
}

const helpString = `
Available Commands:

PING
  Check if the server is alive.
  Response: PONG!

CREATE <log>
  Create an empty log.
  Response: ok | conflict if the log exists

NEXTID <log>
  Return the identifier the next entry will receive.
  Response: integer

APPEND <log> <payload>
  Append payload as a new entry.
  Response: identifier of the new entry

GET <log> <id>
  Return the payload of entry id.
  Response: payload | not found | bad request

PUT <log> <id> <payload>
  Append payload only if it would receive id.
  Response: ok | method not allowed with the current next id

LIST
  List all logs.
  Response: list of logs | nil

HELP
  Show this help message.

EXIT (cli only)
  Close the client connection.
`
