// Package server exposes question answering over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/logger"
	"github.com/statembed/statembed/internal/qa"
)

const (
	requestTimeout  = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Service answers questions about the loaded rows.
type Service interface {
	Nearest(ctx context.Context, question string, k int) ([]index.Match, error)
	Answer(ctx context.Context, question string) (*qa.Answer, error)
}

// Config holds the HTTP settings.
type Config struct {
	Addr          string
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

// Server is the HTTP front end of a Service.
type Server struct {
	svc    Service
	cfg    Config
	log    *slog.Logger
	router *chi.Mux
}

// New builds the router for svc.
func New(svc Service, cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{svc: svc, cfg: cfg, log: log}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Recoverer(s.log))
	r.Use(RequestLogger(s.log))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(RateLimit(s.cfg.RatePerSecond, s.cfg.Burst))
		r.Get("/ask", s.handleAsk)
		r.Get("/nearest", s.handleNearest)
	})
	return r
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// WriteJSON writes a JSON response with proper headers.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(body)
}

// fail logs err and writes message with status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, message string, err error, status int) {
	s.log.Error(message, "err", err, "request_id", middleware.GetReqID(r.Context()))
	http.Error(w, message, status)
}
