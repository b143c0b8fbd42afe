// Package server exposes the shop data over HTTP: the catalog list and
// detail endpoints, analytics, raw data file access, the data browser
// and a self-describing route listing.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/arthur-debert/shopdata/catalog"
	"github.com/arthur-debert/shopdata/inspect"
	"github.com/arthur-debert/shopdata/storage"
)

const (
	DefaultAddr         = ":3000"
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	shutdownTimeout     = 30 * time.Second
)

// Server serves the API.
type Server struct {
	source       storage.Source
	catalog      *catalog.Catalog
	logger       *slog.Logger
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	locale       string
	now          func() time.Time
	routes       []Route
	handler      http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) { s.addr = addr }
}

// WithTimeouts sets the read and write timeouts. Zero keeps the default.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocale sets the locale of the data browser.
func WithLocale(locale string) Option {
	return func(s *Server) {
		if locale != "" {
			s.locale = locale
		}
	}
}

// WithClock sets the time source used by analytics.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a server reading from source.
func New(source storage.Source, opts ...Option) *Server {
	s := &Server{
		source:       source,
		logger:       slog.Default(),
		addr:         DefaultAddr,
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		locale:       inspect.DefaultLocale,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.catalog = catalog.New(source, catalog.WithLogger(s.logger))
	s.routes = s.routeTable()

	mux := http.NewServeMux()
	for _, rt := range s.routes {
		mux.Handle(rt.Method+" "+rt.Pattern, rt.handler)
	}
	s.handler = s.withMiddleware(mux)
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Routes returns the route table.
func (s *Server) Routes() []Route {
	return s.routes
}

// Run listens on the configured address until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
