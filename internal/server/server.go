// Package server exposes the dashboard over HTTP and streams summary updates
// to browsers over WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chrisdamba/slawatch/internal/dashboard"
	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
)

// Dashboard is the read side served by the API. *dashboard.Dashboard
// satisfies it.
type Dashboard interface {
	Charts() []dashboard.ChartSnapshot
	Chart(id string) (dashboard.ChartSnapshot, error)
	Advisory() string
	Secondary() dashboard.Secondary
}

// Controller drives the simulation. *simulator.Simulator satisfies it.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Toggle(ctx context.Context) (bool, error)
	Running() bool
	SetSpeed(x float64) error
	Speed() float64
	Stats() models.LiveStats
}

// Updates is the live summary feed. *stream.Bus satisfies it.
type Updates interface {
	SubscribeAll(ctx context.Context) (<-chan models.SummaryUpdate, error)
}

type Server struct {
	ctx     context.Context
	cfg     models.ServerConfig
	dash    Dashboard
	sim     Controller
	updates Updates
}

// New binds the handlers to ctx: the simulation and WebSocket streams it
// starts live until ctx is cancelled, not just for one request.
func New(ctx context.Context, cfg models.ServerConfig, dash Dashboard, sim Controller, updates Updates) *Server {
	return &Server{ctx: ctx, cfg: cfg, dash: dash, sim: sim, updates: updates}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestMetrics)
	r.Use(cors(s.cfg.AllowedOrigins))

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.serveWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/charts", s.listCharts)
		r.Get("/charts/{id}", s.getChart)
		r.Get("/stats", s.stats)
		r.Get("/secondary", s.secondary)

		r.Route("/simulation", func(r chi.Router) {
			r.Post("/start", s.startSimulation)
			r.Post("/stop", s.stopSimulation)
			r.Post("/toggle", s.toggleSimulation)
			r.Put("/speed", s.setSpeed)
		})
	})
	return r
}

func (s *Server) String() string { return "http-server" }

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logging.Info().Msg("HTTP server stopped")
	return nil
}
