package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-irrigation/internal/strategy"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 2 * time.Second

// CycleRunner runs manual decision cycles. *decision.Engine satisfies it.
type CycleRunner interface {
	RunCycle(ctx context.Context) (decision.CycleReport, error)
	Busy() bool
}

// CycleHistory lists past cycle reports. *history.SQLiteRepository
// satisfies it.
type CycleHistory interface {
	List(ctx context.Context, filter history.Filter) (*history.ListResult, error)
}

// HealthChecker is implemented by infrastructure clients (database, MQTT,
// InfluxDB).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Strategies *strategy.Store
	Cycles     CycleRunner
	History    CycleHistory        // nil disables GET /cycles
	Gatherer   prometheus.Gatherer // nil serves the default registry
	Health     map[string]HealthChecker
	Mode       string
	Version    string
}

// Server is the admin HTTP server.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	strategies *strategy.Store
	cycles     CycleRunner
	history    CycleHistory
	gatherer   prometheus.Gatherer
	health     map[string]HealthChecker
	mode       string
	version    string
	startTime  time.Time
	server     *http.Server
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Strategies == nil {
		return nil, fmt.Errorf("strategy store is required")
	}
	if deps.Cycles == nil {
		return nil, fmt.Errorf("cycle runner is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		strategies: deps.Strategies,
		cycles:     deps.Cycles,
		history:    deps.History,
		gatherer:   gatherer,
		health:     deps.Health,
		mode:       deps.Mode,
		version:    deps.Version,
		startTime:  time.Now(),
	}, nil
}

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start launches the HTTP listener in a background goroutine. The server
// can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
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

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
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
