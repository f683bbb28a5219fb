// Package daemon wires the log service to its TCP and HTTP front ends and runs
// them until the context is cancelled.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/0xRadioAc7iv/go-filelog/internal/catalog"
	"github.com/0xRadioAc7iv/go-filelog/internal/config"
	"github.com/0xRadioAc7iv/go-filelog/internal/httpapi"
	"github.com/0xRadioAc7iv/go-filelog/internal/logging"
	"github.com/0xRadioAc7iv/go-filelog/internal/server"
	"github.com/0xRadioAc7iv/go-filelog/internal/service"
)

type Options struct {
	Config config.Config
	Logger *slog.Logger

	// Listening, if set, is called with the bound TCP address once the
	// listener is up.
	Listening func(addr net.Addr)
}

// Run starts the TCP server, and the HTTP server when an address is
// configured, and blocks until ctx is cancelled. Every log is shut down before
// Run returns.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return err
	}

	cat, err := catalog.Open(filepath.Join(cfg.DataDir, service.CatalogDirName))
	if err != nil {
		return err
	}

	svc, err := service.New(cfg, cat, logging.Component(logger, "service"))
	if err != nil {
		cat.Close()
		return err
	}

	// Logs that cannot be replayed are reported and left offline; the rest
	// are served.
	if err := svc.Restore(); err != nil {
		logger.Error("some logs could not be restored", "error", err)
	}

	ln, err := server.Listen(cfg.Host, cfg.Port)
	if err != nil {
		svc.ShutDown()
		return err
	}
	if opts.Listening != nil {
		opts.Listening(ln.Addr())
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	tcpLogger := logging.Component(logger, "tcp")
	handler := server.NewHandler(svc, tcpLogger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(sctx, ln, handler.ServeConn, tcpLogger); err != nil && sctx.Err() == nil {
			errCh <- fmt.Errorf("tcp server: %w", err)
		}
	}()

	if cfg.HTTPAddr != "" {
		hsrv := httpapi.New(svc, logging.Component(logger, "http"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(sctx, cfg.HTTPAddr); err != nil && sctx.Err() == nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-sctx.Done():
	case runErr = <-errCh:
		logger.Error("server stopped abruptly", "error", runErr)
	}

	// The TCP server closes its open connections and waits for their
	// handlers; the HTTP server drains in-flight requests. Only then are the
	// logs stopped.
	cancel()
	wg.Wait()

	if err := svc.ShutDown(); err != nil {
		runErr = errors.Join(runErr, err)
	}

	logger.Info("filelog stopped")
	return runErr
}
