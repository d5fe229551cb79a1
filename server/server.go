// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes matching and cache maintenance over HTTP.
//
// Routes:
//
//	POST   /v1/match   run a match request
//	DELETE /v1/cache   clear cache entries (?tier=index|result&key=<fingerprint>)
//	GET    /healthz    liveness
//	GET    /metrics    Prometheus exposition
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/skillmatch/core"
	"github.com/poiesic/skillmatch/metrics"
	"github.com/poiesic/skillmatch/pipeline"
	"github.com/poiesic/skillmatch/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultAddr is the listen address.
	DefaultAddr = ":8080"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 30 * time.Second
)

// ErrServiceRequired is returned when a server is created without a service.
var ErrServiceRequired = errors.New("match service required")

// Service is what the server exposes.
type Service interface {
	// Match runs one request through the pipeline.
	Match(ctx context.Context, req pipeline.Request) (pipeline.Result, error)

	// ClearCache removes the entry key from tier. An empty key clears the
	// whole tier and an empty tier applies to every tier.
	ClearCache(ctx context.Context, tier storage.Tier, key string) error
}

// Server is the HTTP front end of a Service.
type Server struct {
	service      Service
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithMetrics records HTTP metrics with m and serves /metrics from g.
// Default serves prometheus.DefaultGatherer without HTTP metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) error {
		s.metrics = m
		if g != nil {
			s.gatherer = g
		}
		return nil
	}
}

// WithAddr sets the listen address. Default is ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithTimeouts sets the HTTP read and write timeouts. Zero disables a timeout.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) error {
		s.readTimeout = read
		s.writeTimeout = write
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "server")
		return nil
	}
}

// New creates a server for service.
func New(service Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}
	s := &Server{
		service:  service,
		gatherer: prometheus.DefaultGatherer,
		addr:     DefaultAddr,
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/v1", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Delete("/cache", s.handleClearCache)
	})
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
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

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := s.service.Match(r.Context(), req)
	if err != nil {
		if isInputError(err) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("match failed", "err", err)
		s.writeError(w, http.StatusInternalServerError, "match failed")
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	tier := storage.Tier(r.URL.Query().Get("tier"))
	key := r.URL.Query().Get("key")
	if tier != "" {
		if err := tier.Validate(); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := s.service.ClearCache(r.Context(), tier, key); err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("clearing cache failed", "tier", tier, "key", key, "err", err)
		s.writeError(w, http.StatusInternalServerError, "clearing cache failed")
		return
	}
	s.logger.Info("cache cleared", "tier", tier, "key", key)
	w.WriteHeader(http.StatusNoContent)
}

func isInputError(err error) bool {
	return errors.Is(err, core.ErrEmptyQuery) ||
		errors.Is(err, core.ErrDirectoryNotFound) ||
		errors.Is(err, core.ErrNotADirectory)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "err", err)
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "encoding response failed"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}
