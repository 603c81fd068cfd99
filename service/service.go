// Package service composes the persistence subsystems from configuration:
// the storage backend and its Manager, the token registry, event observers
// and the Prometheus registry backing /metrics.
//
// The service initializes from configuration via New. Functional options
// replace any config-created subsystem, which is how tests inject a backend:
//
//	svc, err := service.New(ctx, cfg, service.WithLogger(logger))
//	err = svc.Serve(ctx)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/persist/manager"
	"github.com/tailored-agentic-units/persist/observability"
	"github.com/tailored-agentic-units/persist/storage"
	"github.com/tailored-agentic-units/persist/tokenapi"
	"github.com/tailored-agentic-units/persist/tokens"
)

const shutdownTimeout = 10 * time.Second

// Option configures a Service before its subsystems are created.
type Option func(*Service)

// WithLogger sets the logger behind the slog observer and the server log.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithObserver replaces the observer named in the config.
func WithObserver(o observability.Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithBackend uses b instead of the process-wide Manager built from the
// storage config.
func WithBackend(b storage.Backend) Option {
	return func(s *Service) { s.backend = b }
}

// WithMetricsRegistry collects metrics into reg instead of a fresh registry.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Service) { s.metrics = reg }
}

// Service is the assembled persistence runtime.
type Service struct {
	cfg      Config
	logger   *slog.Logger
	observer observability.Observer
	metrics  *prometheus.Registry
	backend  storage.Backend
	manager  *manager.Manager
	tokens   *tokens.Registry
}

// New creates a Service from cfg and loads the persisted token registry.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: *cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if s.observer == nil {
		obs, err := observability.GetObserver(s.cfg.Observer, s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create observer: %w", err)
		}
		s.observer = obs
	}

	var mgrOpts []manager.Option
	if !s.cfg.DisableMetrics {
		if s.metrics == nil {
			s.metrics = prometheus.NewRegistry()
			s.metrics.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		counter, err := observability.NewMetricsObserver(s.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics observer: %w", err)
		}
		s.observer = observability.NewMultiObserver(s.observer, counter)
		mgrOpts = append(mgrOpts, manager.WithMetrics(s.metrics, s.backendKind()))
	}
	mgrOpts = append(mgrOpts, manager.WithObserver(s.observer))

	var err error
	if s.backend != nil {
		s.manager, err = manager.New(s.backend, mgrOpts...)
	} else {
		s.manager, err = manager.Open(ctx, &s.cfg.Storage, mgrOpts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	s.tokens = tokens.New(s.manager, tokens.WithObserver(s.observer))
	if err := s.tokens.Load(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) backendKind() string {
	if s.backend != nil {
		return "custom"
	}
	return s.cfg.Storage.Kind()
}

// Config returns the configuration the Service was built from.
func (s *Service) Config() Config {
	return s.cfg
}

// Manager returns the storage manager.
func (s *Service) Manager() *manager.Manager {
	return s.manager
}

// Tokens returns the token registry.
func (s *Service) Tokens() *tokens.Registry {
	return s.tokens
}

// Metrics returns the Prometheus registry, or nil when metrics are disabled.
func (s *Service) Metrics() *prometheus.Registry {
	return s.metrics
}

// Handler returns the HTTP handler serving the token API and, unless
// disabled, /metrics.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(tokenapi.NewHandler(s.tokens))
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{Registry: s.metrics}))
	}
	return mux
}

// Serve listens on the configured address until ctx is cancelled, then
// shuts the server down gracefully.
func (s *Service) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving", "listen", srv.Addr, "manager_id", s.manager.ID())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
