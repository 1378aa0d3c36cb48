// Package transport serves the snapshot feed over HTTP: a one-shot JSON
// endpoint, a server-sent-events stream, and the metrics registry.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hostwatch/internal/engine"
	"hostwatch/internal/logger"
	"hostwatch/internal/status"
)

// pingInterval is how often an SSE comment is written to keep idle
// connections from being reaped by intermediaries.
const pingInterval = 15 * time.Second

// Server exposes the engine's feed over HTTP.
type Server struct {
	engine *engine.Engine
	log    logger.Logger
	http   *http.Server
}

// NewServer creates a feed server listening on addr.
func NewServer(eng *engine.Engine, addr string, log logger.Logger) *Server {
	if log == nil {
		log = logger.Noop()
	}
	s := &Server{engine: eng, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/status/stream", s.handleStream)
	mux.Handle("GET /metrics", promhttp.HandlerFor(
		eng.Metrics().Registry, promhttp.HandlerOpts{}))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the route table, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("feed listening on %s", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// handleStatus returns the current snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.engine.Store().Current()); err != nil {
		s.log.Debug("status write failed: %v", err)
	}
}

// handleStream streams snapshots as server-sent events. The current
// snapshot is delivered immediately, then every cycle's result as it is
// published, until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	observer := s.engine.Broadcaster().Subscribe()
	defer s.engine.Broadcaster().Unsubscribe(observer)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, open := <-observer.Updates():
			if !open {
				// Evicted by the broadcaster.
				return
			}
			if err := writeEvent(w, snap); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one snapshot as an SSE data frame.
func writeEvent(w http.ResponseWriter, snap *status.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
