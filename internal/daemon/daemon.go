// SPDX-License-Identifier: MIT

// Package daemon runs the HTTP servers and owns graceful shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quartel/warteraum/internal/config"
	"github.com/quartel/warteraum/internal/log"
)

const shutdownTimeout = 10 * time.Second

// ShutdownHook is a cleanup function executed during graceful shutdown.
// Hooks run in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// Manager starts the API and metrics servers and blocks until the run
// context is cancelled or a server fails.
type Manager struct {
	cfg config.Config
	api http.Handler

	mu      sync.Mutex
	started bool
	hooks   []namedHook

	apiAddr     net.Addr
	metricsAddr net.Addr
	ready       chan struct{}

	logger zerolog.Logger
}

// NewManager creates a daemon manager serving the given API handler.
func NewManager(cfg config.Config, api http.Handler) (*Manager, error) {
	if api == nil {
		return nil, fmt.Errorf("daemon: api handler is nil")
	}
	return &Manager{
		cfg:    cfg,
		api:    api,
		ready:  make(chan struct{}),
		logger: log.WithComponent("daemon"),
	}, nil
}

// RegisterShutdownHook appends a cleanup function. Hooks run LIFO after
// the HTTP servers have drained.
func (m *Manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, hook: hook})
}

// Ready is closed once all listeners are bound.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// APIAddr returns the bound API listener address. Valid after Ready.
func (m *Manager) APIAddr() net.Addr { return m.apiAddr }

// MetricsAddr returns the bound metrics listener address, or nil when
// metrics are disabled. Valid after Ready.
func (m *Manager) MetricsAddr() net.Addr { return m.metricsAddr }

// Run binds the listeners and serves until ctx is cancelled or a server
// fails. It drains in-flight requests and executes the shutdown hooks
// before returning. A clean, signal-driven stop returns nil.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("daemon: manager already started")
	}
	m.started = true
	m.mu.Unlock()

	apiLn, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("daemon: bind api listener: %w", err)
	}
	m.apiAddr = apiLn.Addr()

	apiServer := &http.Server{
		Handler:           m.api,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var (
		metricsLn     net.Listener
		metricsServer *http.Server
	)
	if m.cfg.MetricsEnabled {
		metricsLn, err = net.Listen("tcp", m.cfg.MetricsAddr)
		if err != nil {
			_ = apiLn.Close()
			return fmt.Errorf("daemon: bind metrics listener: %w", err)
		}
		m.metricsAddr = metricsLn.Addr()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	close(m.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m.logger.Info().
			Str(log.FieldEvent, "daemon.api_listening").
			Str("addr", m.apiAddr.String()).
			Msg("api server listening")
		if err := apiServer.Serve(apiLn); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		g.Go(func() error {
			m.logger.Info().
				Str(log.FieldEvent, "daemon.metrics_listening").
				Str("addr", m.metricsAddr.String()).
				Msg("metrics server listening")
			if err := metricsServer.Serve(metricsLn); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		// Bounded, detached from caller cancellation so draining can finish.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	hookErr := m.runHooks()
	if runErr != nil && hookErr != nil {
		return errors.Join(runErr, hookErr)
	}
	if runErr != nil {
		return runErr
	}
	if hookErr != nil {
		return hookErr
	}

	m.logger.Info().
		Str(log.FieldEvent, "daemon.stopped").
		Msg("daemon stopped cleanly")
	return nil
}

func (m *Manager) runHooks() error {
	m.mu.Lock()
	hooks := make([]namedHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			m.logger.Error().
				Err(err).
				Str(log.FieldEvent, "daemon.hook_failed").
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		m.logger.Debug().
			Str("hook", h.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}
	return errors.Join(errs...)
}
