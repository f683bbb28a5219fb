package filelog

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/0xRadioAc7iv/go-filelog/internal/config"
	"github.com/0xRadioAc7iv/go-filelog/internal/protocol"
)

// Errors returned for non-success replies. The server's message is wrapped
// in each.
var (
	ErrNotFound    = errors.New("not found")
	ErrExists      = errors.New("already exists")
	ErrBadRequest  = errors.New("bad request")
	ErrTooLarge    = errors.New("payload too large")
	ErrUnavailable = errors.New("log unavailable")
	ErrServer      = errors.New("server error")
)

type Client struct {
	mu   sync.Mutex
	conn net.Conn
}

func Connect(opts ...Option) (*Client, error) {
	cfg := config.DefaultClient()

	for _, opt := range opts {
		opt(cfg)
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Client{conn: conn}, nil
}

func (c *Client) Ping() (string, error) {
	res, err := c.call(&protocol.Command{Cmd: "ping"})
	if err != nil {
		return "", err
	}
	return string(res.Body), nil
}

// Create makes an empty log. It fails with ErrExists if the log is there
// already.
func (c *Client) Create(log string) error {
	_, err := c.call(&protocol.Command{Cmd: "create", Log: log})
	return err
}

// NextID returns the identifier the next entry appended to log will receive.
func (c *Client) NextID(log string) (int, error) {
	res, err := c.call(&protocol.Command{Cmd: "nextid", Log: log})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(res.Body))
}

// Append adds payload to log and returns the identifier it was stored under.
func (c *Client) Append(log string, payload []byte) (int, error) {
	res, err := c.call(&protocol.Command{Cmd: "append", Log: log, Payload: payload})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(string(res.Body))
}

func (c *Client) Get(log string, id int) ([]byte, error) {
	res, err := c.call(&protocol.Command{Cmd: "get", Log: log, ID: int64(id)})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// Put appends payload to log only if it would be stored under id. When
// another writer got there first it returns false along with the identifier
// the log expects next.
func (c *Client) Put(log string, id int, payload []byte) (bool, int, error) {
	res, err := c.sendCommand(&protocol.Command{Cmd: "put", Log: log, ID: int64(id), Payload: payload})
	if err != nil {
		return false, 0, err
	}

	switch res.Status {
	case protocol.StatusCreated:
		return true, id + 1, nil
	case protocol.StatusMethodNotAllowed:
		next, err := strconv.Atoi(string(res.Body))
		if err != nil {
			return false, 0, fmt.Errorf("%w: malformed next id %q", ErrServer, res.Body)
		}
		return false, next, nil
	default:
		return false, 0, statusError(res)
	}
}

// List returns the names of all logs on the server.
func (c *Client) List() ([]string, error) {
	res, err := c.call(&protocol.Command{Cmd: "list"})
	if err != nil {
		return nil, err
	}

	body := string(res.Body)
	if body == "nil" || body == "" {
		return nil, nil
	}
	return strings.Split(body, "\n"), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Execute runs a command typed at the interactive prompt and renders the
// reply as text.
func (c *Client) Execute(cmd string, args []string) (string, error) {
	command, err := buildCommand(cmd, args)
	if err != nil {
		return "", err
	}

	res, err := c.sendCommand(command)
	if err != nil {
		return "", err
	}

	switch res.Status {
	case protocol.StatusOK, protocol.StatusCreated:
		return string(res.Body), nil
	case protocol.StatusMethodNotAllowed:
		return fmt.Sprintf("(%s) next id is %s", res.Status, res.Body), nil
	default:
		return fmt.Sprintf("(%s) %s", res.Status, res.Body), nil
	}
}

func buildCommand(cmd string, args []string) (*protocol.Command, error) {
	usage := func(form string) error {
		return fmt.Errorf("usage: %s", form)
	}

	parseID := func(s string) (int64, error) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q", s)
		}
		return id, nil
	}

	switch cmd {
	case "ping", "list", "help":
		if len(args) != 0 {
			return nil, usage(cmd)
		}
		return &protocol.Command{Cmd: cmd}, nil
	case "create", "nextid":
		if len(args) != 1 {
			return nil, usage(cmd + " <log>")
		}
		return &protocol.Command{Cmd: cmd, Log: args[0]}, nil
	case "append":
		if len(args) != 2 {
			return nil, usage("append <log> <payload>")
		}
		return &protocol.Command{Cmd: cmd, Log: args[0], Payload: []byte(args[1])}, nil
	case "get":
		if len(args) != 2 {
			return nil, usage("get <log> <id>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return nil, err
		}
		return &protocol.Command{Cmd: cmd, Log: args[0], ID: id}, nil
	case "put":
		if len(args) != 3 {
			return nil, usage("put <log> <id> <payload>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return nil, err
		}
		return &protocol.Command{Cmd: cmd, Log: args[0], ID: id, Payload: []byte(args[2])}, nil
	default:
		// Let the server answer unknown commands.
		return &protocol.Command{Cmd: cmd}, nil
	}
}

// call sends command and turns any non-success status into an error.
func (c *Client) call(command *protocol.Command) (*protocol.Response, error) {
	res, err := c.sendCommand(command)
	if err != nil {
		return nil, err
	}

	if res.Status != protocol.StatusOK && res.Status != protocol.StatusCreated {
		return nil, statusError(res)
	}
	return res, nil
}

func (c *Client) sendCommand(command *protocol.Command) (*protocol.Response, error) {
	payload, err := protocol.EncodeCommand(command)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err = c.conn.Write(payload)
	if err != nil {
		return nil, err
	}

	return protocol.DecodeResponse(c.conn)
}

func statusError(res *protocol.Response) error {
	var sentinel error

	switch res.Status {
	case protocol.StatusNotFound:
		sentinel = ErrNotFound
	case protocol.StatusConflict:
		sentinel = ErrExists
	case protocol.StatusBadRequest:
		sentinel = ErrBadRequest
	case protocol.StatusTooLarge:
		sentinel = ErrTooLarge
	case protocol.StatusUnavailable:
		sentinel = ErrUnavailable
	default:
		sentinel = ErrServer
	}

	return fmt.Errorf("%w: %s", sentinel, res.Body)
}
