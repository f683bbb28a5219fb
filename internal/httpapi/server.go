// Package httpapi exposes the log service over REST.
//
//	POST /logs                      create the log named by the request body
//	GET  /logs                      list logs
//	GET  /logs/{log}/items          next identifier
//	POST /logs/{log}/items          append the request body
//	GET  /logs/{log}/items/{id}     read one entry
//	PUT  /logs/{log}/items/{id}     append the request body only if it gets id
//	GET  /healthz                   liveness
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/0xRadioAc7iv/go-filelog/core"
	"github.com/0xRadioAc7iv/go-filelog/internal/service"
)

// ShutdownTimeout bounds how long in-flight requests may take once the server
// is asked to stop.
const ShutdownTimeout = 5 * time.Second

type Server struct {
	svc    *service.Service
	logger *slog.Logger
	srv    *http.Server
}

func New(svc *service.Service, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{svc: svc, logger: logger, srv: &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /logs", s.handleListLogs)
	mux.HandleFunc("POST /logs", s.handleCreateLog)
	mux.HandleFunc("GET /logs/{log}/items", s.handleNextID)
	mux.HandleFunc("POST /logs/{log}/items", s.handleAppend)
	mux.HandleFunc("GET /logs/{log}/items/{id}", s.handleGet)
	mux.HandleFunc("PUT /logs/{log}/items/{id}", s.handlePut)

	return s
}

// Handler returns the routing handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.logger.Info("http server listening", "addr", l.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()

	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": s.svc.Names()})
}

func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1024))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(string(body))
	if err := s.svc.Create(name); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleNextID(w http.ResponseWriter, r *http.Request) {
	next, err := s.svc.NextID(r.PathValue("log"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"nextId": next})
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	payload, err := s.readPayload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id, err := s.svc.Append(r.PathValue("log"), payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	h, err := s.svc.Handle(r.PathValue("log"), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(h.Size(), 10))
	if _, err := h.CopyTo(w); err != nil {
		// Headers are gone already; all that is left is to log.
		s.logger.Error("streaming entry failed", "log", r.PathValue("log"), "id", id, "error", err)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	payload, err := s.readPayload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ok, err := s.svc.Put(r.PathValue("log"), id, payload)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		// The identifier is not the next one, too low or too high.
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.svc.MaxPayloadBytes())))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, service.ErrPayloadTooLarge
		}
		return nil, errors.Join(core.ErrInvalidArgument, err)
	}
	return payload, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 || id > core.MaxEntryID {
		return 0, errors.Join(core.ErrInvalidArgument, errors.New("id must be a non-negative integer"))
	}
	return id, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err.Error())
}

// StatusFor maps a service or store error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrLogNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrLogExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidName), errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrIllegalState):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
