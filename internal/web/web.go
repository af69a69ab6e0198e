// Package web serves the dashboard API: the event log, a live event stream,
// health probes and metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "log/slog"

	"gpthome/internal/eventlog"
)

// checkTimeout bounds one readiness probe.
const checkTimeout = 5 * time.Second

// EventSource is the part of eventlog.Log the API reads.
type EventSource interface {
	ReadAll() (string, error)
	Subscribe() (<-chan eventlog.Entry, func())
}

type Options struct {
	Log EventSource
	// Ready reports whether the assistant can serve queries. Nil means always.
	Ready func(ctx context.Context) error
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type Server struct {
	elog    EventSource
	ready   func(ctx context.Context) error
	metrics http.Handler
	mux     *http.ServeMux
}

func New(opt Options) (*Server, error) {
	if opt.Log == nil {
		return nil, fmt.Errorf("event log is nil")
	}

	s := &Server{
		elog:    opt.Log,
		ready:   opt.Ready,
		metrics: opt.Metrics,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /logs", s.handleLogs)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.mux }

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("Dashboard API listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type logsResponse struct {
	LogData string `json:"log_data"`
}

// handleLogs returns the whole event log, the contract the dashboard polls.
func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	data, err := s.elog.ReadAll()
	if err != nil {
		log.Error("Failed to read event log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{LogData: data})
}

type healthResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()
	if err := s.ready(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResult{Status: "fail", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, healthResult{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("Failed to write response", "error", err)
	}
}
