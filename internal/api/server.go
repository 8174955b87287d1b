package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/dropdash/internal/arrangement"
	"github.com/nerrad567/dropdash/internal/dashboard"
	"github.com/nerrad567/dropdash/internal/infrastructure/config"
	"github.com/nerrad567/dropdash/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Executor runs f on the dashboard's event loop and waits for it.
// *eventloop.Loop satisfies it.
type Executor interface {
	Do(ctx context.Context, f func()) error
}

// HealthChecker is an optional dependency reported by /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Render    config.RenderConfig
	Logger    *logging.Logger
	Loop      Executor
	Dashboard *dashboard.Controller
	// Arrangements is optional; without it the arrangement routes answer 503.
	Arrangements arrangement.Repository
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Checks are reported by name in /health.
	Checks  map[string]HealthChecker
	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	renderCfg    config.RenderConfig
	logger       *logging.Logger
	loop         Executor
	dash         *dashboard.Controller
	arrangements arrangement.Repository
	metrics      http.Handler
	checks       map[string]HealthChecker
	version      string
	startTime    time.Time
	server       *http.Server
	hub          *Hub
	cancel       context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// It subscribes the WebSocket hub to dashboard updates, so it must be called
// before the event loop starts running. The server does not listen until
// Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Loop == nil {
		return nil, fmt.Errorf("event loop is required")
	}
	if deps.Dashboard == nil {
		return nil, fmt.Errorf("dashboard is required")
	}

	s := &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		renderCfg:    deps.Render,
		logger:       deps.Logger,
		loop:         deps.Loop,
		dash:         deps.Dashboard,
		arrangements: deps.Arrangements,
		metrics:      deps.Metrics,
		checks:       deps.Checks,
		version:      deps.Version,
		startTime:    time.Now(),
		hub:          NewHub(deps.WS, deps.Logger),
	}
	s.dash.Subscribe(func(st dashboard.State) {
		s.hub.Broadcast(ChannelState, st)
	})
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
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
