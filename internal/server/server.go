// Package server exposes the daemon's local surface: a WebSocket feed of
// probe events at /ws and a small JSON API over the recorded history.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zzfadi/CodexBar-sub003/internal/config"
	"github.com/zzfadi/CodexBar-sub003/internal/hub"
	"github.com/zzfadi/CodexBar-sub003/internal/store"
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
}

func New(cfg *config.Config, h *hub.Hub, probes *store.ProbeRepo) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWebSocket)
	mux.Handle("/api/", NewAPI(probes))

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			// Loopback only: this daemon serves the menubar on the same
			// machine, and the history includes raw terminal captures.
			Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler: mux,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
