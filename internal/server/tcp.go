// Package server runs the binary TCP front end of the log service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
)

// MaxPortProbes bounds how many consecutive ports Listen tries.
const MaxPortProbes = 100

// Listen binds a TCP listener on host:port. If the port is taken it looks for
// the next open one. Port 0 lets the kernel choose.
func Listen(host string, port int) (net.Listener, error) {
	for probe := 0; ; probe++ {
		addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return ln, nil
		}

		if errors.Is(err, syscall.EADDRINUSE) && port != 0 && port < 65535 && probe < MaxPortProbes {
			port++
			continue
		}
		return nil, err
	}
}

// Serve accepts connections on ln and runs handler for each of them in its own
// goroutine, until ctx is cancelled. Before returning it closes every
// connection still open and waits for their handlers to finish.
func Serve(ctx context.Context, ln net.Listener, handler func(conn net.Conn), logger *slog.Logger) error {
	// When ctx is cancelled, close listener
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logger.Info("tcp server listening", "addr", ln.Addr().String())

	var (
		mu    sync.Mutex
		conns = make(map[net.Conn]struct{})
		wg    sync.WaitGroup
	)

	drain := func() {
		mu.Lock()
		for conn := range conns {
			conn.Close()
		}
		mu.Unlock()

		wg.Wait()
	}

	// Accept Loop
	for {
		conn, err := ln.Accept()
		if err != nil {
			// When ln.Close() is called, Accept() returns an error.
			// This is how we break out of the loop cleanly.
			select {
			case <-ctx.Done():
				drain()
				return nil // graceful shutdown
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				drain()
				return err
			}

			logger.Warn("error accepting connection", "error", err)
			continue
		}

		mu.Lock()
		conns[conn] = struct{}{}
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				mu.Lock()
				delete(conns, conn)
				mu.Unlock()
			}()

			handler(conn)
		}()
	}
}
