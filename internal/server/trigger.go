package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teemow/agendahook/internal/briefing"
	"github.com/teemow/agendahook/internal/instrumentation"
	"github.com/teemow/agendahook/internal/logging"
)

// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
const DefaultReadHeaderTimeout = 10 * time.Second

// Runner runs the pipeline once.
type Runner interface {
	Run(ctx context.Context, trigger string) briefing.Outcome
}

// Serial wraps a Runner so that at most one run is in flight. Later callers
// wait for the current run to finish and then run themselves.
type Serial struct {
	mu     sync.Mutex
	runner Runner
	health *HealthChecker
}

// NewSerial wraps runner. health may be nil.
func NewSerial(runner Runner, health *HealthChecker) *Serial {
	return &Serial{runner: runner, health: health}
}

// Run executes one run while holding the lock.
func (s *Serial) Run(ctx context.Context, trigger string) briefing.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := s.runner.Run(ctx, trigger)
	if s.health != nil {
		s.health.ObserveRun(trigger, outcome)
	}
	return outcome
}

// Config configures the trigger server.
type Config struct {
	// Addr is the listen address (e.g. ":8080")
	Addr string

	Runner  *Serial
	Health  *HealthChecker
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Server is the HTTP trigger endpoint.
type Server struct {
	addr    string
	runner  *Serial
	health  *HealthChecker
	metrics *instrumentation.Metrics
	logger  *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a trigger server.
func New(config Config) (*Server, error) {
	if config.Runner == nil {
		return nil, fmt.Errorf("runner is required for the trigger server")
	}
	if config.Health == nil {
		config.Health = NewHealthChecker()
	}
	// Not ready until Start has a listener.
	config.Health.SetReady(false)
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    config.Addr,
		runner:  config.Runner,
		health:  config.Health,
		metrics: config.Metrics,
		logger:  logger.With(slog.String("component", "trigger")),
	}, nil
}

// Handler returns the server's routes. Any method on any path other than
// the health endpoints starts a run; the response carries the run's status code and message as plain text.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	s.health.RegisterHealthEndpoints(r)
	r.HandleFunc("/", s.handleTrigger)
	r.HandleFunc("/*", s.handleTrigger)

	return otelhttp.NewHandler(r, "agendahook.trigger")
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// A started run is finished even if the caller hangs up.
	ctx := context.WithoutCancel(r.Context())
	outcome := s.runner.Run(ctx, briefing.TriggerHTTP)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Run-Id", outcome.RunID)
	w.WriteHeader(outcome.Status)
	_, _ = w.Write([]byte(outcome.Message))

	s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, outcome.Status, time.Since(start))
	s.logger.Info("trigger handled",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		logging.StatusCode(outcome.Status))
}

// Start listens on the configured address and serves until Shutdown.
// ready, if not nil, is closed once the listener is bound.
func (s *Server) Start(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("starting trigger server", slog.String("addr", ln.Addr().String()))
	s.health.SetReady(true)
	if ready != nil {
		close(ready)
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server as not ready and waits for in-flight runs.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down trigger server")
	return srv.Shutdown(ctx)
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
