package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/sensor-registry/internal/audit"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/config"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/database"
	"github.com/nerrad567/sensor-registry/internal/infrastructure/logging"
	"github.com/nerrad567/sensor-registry/internal/sensor"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// EventPublisher forwards registry events to an external bus.
// *mqtt.Client satisfies it.
type EventPublisher interface {
	PublishEvent(ev sensor.Event) error
	IsConnected() bool
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Metrics   config.MetricsConfig
	Logger    *logging.Logger
	Registry  *sensor.Registry
	Publisher EventPublisher     // optional: MQTT event publishing
	AuditRepo audit.Repository   // optional: audit trail
	DB        *database.DB       // optional: reported by /health and /status
	Version   string
}

// Server is the HTTP API server for sensord.
//
// It manages the HTTP listener, routes, middleware, WebSocket hub and the
// background event dispatcher. The server is created with New() and
// started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	metricCfg config.MetricsConfig
	logger    *logging.Logger
	registry  *sensor.Registry
	publisher EventPublisher
	auditRepo audit.Repository
	db        *database.DB
	version   string
	startTime time.Time

	server  *http.Server
	hub     *Hub
	metrics *metrics

	// eventCh feeds the dispatcher that publishes to MQTT and writes audit rows.
	eventCh chan sensor.Event

	cancel context.CancelFunc // cancels background goroutines on Close()
	wg     sync.WaitGroup
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called, but its router is
// usable immediately through Handler().
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("sensor registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		metricCfg: deps.Metrics,
		logger:    deps.Logger,
		registry:  deps.Registry,
		publisher: deps.Publisher,
		auditRepo: deps.AuditRepo,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		eventCh:   make(chan sensor.Event, eventQueueSize),
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	s.metrics = newMetrics(s.registry, s.hub)

	return s, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and the event dispatcher, then launches the
// HTTP listener in a background goroutine. The server can be stopped with
// Close().
func (s *Server) Start(ctx context.Context) error {
	s.startBackground(ctx)

	s.server = &http.Server{
		Addr:              s.cfg.Address(),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// startBackground launches the hub and the event dispatcher.
func (s *Server) startBackground(ctx context.Context) {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(srvCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.dispatchEvents(srvCtx)
	}()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then stops
// the hub and flushes queued events before returning.
func (s *Server) Close() error {
	var shutdownErr error
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("shutting down API server: %w", err)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	return shutdownErr
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
