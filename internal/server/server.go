// Package server exposes the results view, the history log and its change
// stream over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/deepcheck/internal/history"
	"github.com/ppiankov/deepcheck/internal/model"
	"github.com/ppiankov/deepcheck/internal/pipeline"
	"github.com/ppiankov/deepcheck/internal/present"
	"github.com/ppiankov/deepcheck/internal/worker"
)

// Server serves the dashboard API
type Server struct {
	cfg      model.ServerConfig
	pipeline *pipeline.Pipeline
	store    *history.Store
	limiter  *worker.Limiter // nil disables ingress limiting
	log      *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current present.View

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a server. The pipeline should record into store.
func New(cfg model.ServerConfig, p *pipeline.Pipeline, store *history.Store, limiter *worker.Limiter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		pipeline: p,
		store:    store,
		limiter:  limiter,
		log:      log.With("system", "server"),
		now:      time.Now,
		current:  present.Empty(),
		done:     make(chan struct{}),
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/results", s.handleResults)
		r.Get("/history", s.handleHistory)
		r.Get("/history/raw", s.handleHistoryRaw)
		r.Get("/history/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/analyses", s.handleIngest)
			r.Post("/history/test", s.handleAddTest)
		})
	})

	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")
	s.Stop()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Stop ends open event streams
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Current returns the view of the last ingested result
func (s *Server) Current() present.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Current())
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "analysis result too large"})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	v, item := s.pipeline.Ingest(r.Context(), body)

	s.mu.Lock()
	s.current = v
	s.mu.Unlock()

	if item != nil {
		w.Header().Set("X-History-Id", item.ID)
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items := s.store.Load()
	if items == nil {
		items = []model.HistoryItem{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddTest(w http.ResponseWriter, r *http.Request) {
	item := s.store.Append(history.TestEntry(s.now()))
	s.writeJSON(w, http.StatusCreated, item)
}

type rawResponse struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Raw   string `json:"raw"`
}

func (s *Server) handleHistoryRaw(w http.ResponseWriter, r *http.Request) {
	raw, found := s.store.Raw()
	s.writeJSON(w, http.StatusOK, rawResponse{Key: history.StorageKey, Found: found, Raw: raw})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey is the client address without the port
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info(
				"request",
				"method", r.Method,
				"uri", r.URL.RequestURI(),
				"status", ww.Status(),
				"addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
				"duration", time.Since(start),
			)
		})
	}
}

// writeJSON encodes payload before writing the status so an unencodable
// payload becomes a 500 instead of an empty success.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("encode response", "status", status, "error", err)
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		s.log.Debug("write response", "error", err)
	}
}
