// Package server implements the authoritative PLO table service: websocket
// sessions, the table state machines, broadcast fanout, the fast-fold
// router, and hand history recording. The game rules themselves live in
// internal/game; this package owns everything with a clock or a socket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/okihara/plo-game-sub001/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Server ties the websocket endpoint, health check, and metrics endpoint to
// the table manager.
type Server struct {
	cfg      *Config
	logger   *log.Logger
	clock    quartz.Clock
	metrics  *metrics.Metrics
	manager  *Manager
	upgrader websocket.Upgrader
}

// NewServer builds the HTTP surface over an existing manager.
func NewServer(cfg *Config, logger *log.Logger, clock quartz.Clock, m *metrics.Metrics, manager *Manager) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger.WithPrefix("server"),
		clock:   clock,
		metrics: m,
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The service fronts its own clients; origin policy belongs to
			// the proxy in front of it.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the main mux: websocket endpoint and health check.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.logger.Debug("client connected", "remote", r.RemoteAddr)
	conn := NewConnection(ws, s.logger, s.clock, s.manager, s.metrics, s.cfg.Server.AdminToken)
	conn.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"tables": s.manager.TableCount(),
	})
}

// Run serves until ctx is cancelled, then shuts both listeners down
// gracefully and closes the tables.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	main := &http.Server{Addr: s.cfg.Server.ListenAddr, Handler: s.Handler()}
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.cfg.Server.ListenAddr)
		if err := main.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen %s: %w", s.cfg.Server.ListenAddr, err)
		}
		return nil
	})

	var metricsServer *http.Server
	if s.cfg.Server.MetricsAddr != "" && s.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metrics.Handler())
		metricsServer = &http.Server{Addr: s.cfg.Server.MetricsAddr, Handler: mux}
		g.Go(func() error {
			s.logger.Info("metrics listening", "addr", s.cfg.Server.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("metrics listen %s: %w", s.cfg.Server.MetricsAddr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = main.Shutdown(shutdownCtx)
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		s.manager.Close()
		return nil
	})

	return g.Wait()
}
