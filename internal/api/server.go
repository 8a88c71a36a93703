// File: internal/api/server.go

// Package api exposes the control plane over HTTP and WebSocket. Every HTTP
// response uses the success/data/error envelope with status 200; transport
// status codes are reserved for transport failures.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/bus"
	"github.com/tinkertool/tinker/internal/config"
	"github.com/tinkertool/tinker/internal/engine"
	"github.com/tinkertool/tinker/internal/netmon"
	"github.com/tinkertool/tinker/internal/tabs"
	"go.uber.org/zap"
)

// Version reported by /api/info alongside the server name.
const (
	ServerName = "tinker"
	Version    = "0.1.0"
)

// Deps are the subsystems the facade reads from and queues into. Command
// execution happens in the dispatcher; the facade only acknowledges queueing.
type Deps struct {
	Commands *bus.Bus[schemas.Command]
	Events   *bus.Bus[schemas.Event]
	Tabs     *tabs.Registry
	Network  *netmon.Monitor
	Recorder *engine.Recorder
}

// Server hosts the HTTP API and the WebSocket event stream.
type Server struct {
	logger     *zap.Logger
	cfg        config.ServerConfig
	d          Deps
	httpServer *http.Server
}

// NewServer builds the facade. Call Start to begin serving.
func NewServer(logger *zap.Logger, cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		logger: logger.Named("api"),
		cfg:    cfg,
		d:      deps,
	}
	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.Handler(),
	}
	return s
}

// Handler assembles the router. Exposed separately so tests can drive the
// facade through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The WebSocket route stays outside the timeout group; event streams are
	// long lived.
	r.Get("/ws", s.handleWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/info", s.handleInfo)

			r.Post("/navigate", s.handleNavigate)

			r.Route("/tabs", func(r chi.Router) {
				r.Get("/", s.handleListTabs)
				r.Post("/", s.handleCreateTab)
				r.Delete("/{id}", s.handleCloseTab)
				r.Post("/{id}/activate", s.handleActivateTab)
			})

			r.Post("/screenshot", s.handleScreenshot)

			r.Route("/visual", func(r chi.Router) {
				r.Post("/baseline", s.handleCreateBaseline)
				r.Post("/test", s.handleVisualTest)
			})

			r.Route("/element", func(r chi.Router) {
				r.Post("/find", s.handleFindElement)
				r.Post("/interact", s.handleInteractElement)
				r.Post("/highlight", s.handleHighlightElement)
				r.Post("/wait", s.handleWaitForCondition)
			})

			r.Get("/page/info", s.handlePageInfo)
			r.Post("/javascript/execute", s.handleExecuteJavaScript)

			r.Route("/network", func(r chi.Router) {
				r.Post("/start", s.handleNetworkStart)
				r.Post("/stop", s.handleNetworkStop)
				r.Get("/stats", s.handleNetworkStats)
				r.Get("/export", s.handleNetworkExport)
				r.Post("/filter", s.handleNetworkFilter)
				r.Post("/clear-filters", s.handleNetworkClearFilters)
			})

			r.Route("/recording", func(r chi.Router) {
				r.Post("/start", s.handleRecordingStart)
				r.Post("/stop", s.handleRecordingStop)
				r.Post("/save", s.handleRecordingSave)
			})
		})
	})

	return r
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server starting", zap.String("address", s.cfg.Addr()))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.httpServer.Shutdown(ctx)
}
