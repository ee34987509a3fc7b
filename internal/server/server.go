// Package server exposes forms and respondent sessions over HTTP.
//
// Each HTTP session owns one engine.Session held in memory; requests on the
// same session are serialized. Completed answer sets go to the configured
// sink. Only published forms accept respondents.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/formstep/internal/form"
	"github.com/roach88/formstep/internal/ident"
	"github.com/roach88/formstep/internal/sink"
	"github.com/roach88/formstep/internal/store"
)

// FormStore is the persistence the server needs.
type FormStore interface {
	CreateForm(ctx context.Context, f *form.Form) error
	GetForm(ctx context.Context, id string) (*form.Form, error)
	ListForms(ctx context.Context, status form.Status) ([]form.Form, error)
	UpdateForm(ctx context.Context, f *form.Form) error
	DeleteForm(ctx context.Context, id string) error
	ListSubmissions(ctx context.Context, formID string) ([]store.Submission, error)
	Ping(ctx context.Context) error
}

// Config wires the server's collaborators. Only Store is required.
type Config struct {
	Store     FormStore
	Sink      sink.Sink       // default: sink.Discard
	IDs       ident.Generator // default: UUIDv7
	Metrics   *Metrics        // default: NewMetrics()
	Logger    *slog.Logger    // default: slog.Default()
	PublicURL string          // base of QR share links
	Now       func() time.Time

	// SessionTTL evicts sessions idle for longer. Zero means
	// DefaultSessionTTL; negative keeps sessions until deleted.
	SessionTTL time.Duration

	// RequestLog enables chi's request logger.
	RequestLog bool
}

// Server is the HTTP surface.
type Server struct {
	store     FormStore
	sink      sink.Sink
	ids       ident.Generator
	metrics   *Metrics
	logger    *slog.Logger
	publicURL string
	now       func() time.Time
	sessions  *registry
	router    chi.Router

	mu         sync.Mutex // guards httpServer and closed
	httpServer *http.Server
	closed     bool
	done       chan struct{} // closed by Shutdown
}

// New creates a server and builds its routes.
func New(cfg Config) *Server {
	s := &Server{
		store:     cfg.Store,
		sink:      cfg.Sink,
		ids:       cfg.IDs,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		publicURL: cfg.PublicURL,
		now:       cfg.Now,
		done:      make(chan struct{}),
	}
	if s.sink == nil {
		s.sink = sink.Discard
	}
	if s.ids == nil {
		s.ids = ident.UUIDv7Generator{}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	ttl := cfg.SessionTTL
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	s.sessions = newRegistry(ttl, s.now)
	s.router = s.routes(cfg.RequestLog)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes(requestLog bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.listForms)
		r.Post("/", s.createForm)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getForm)
			r.Put("/", s.updateForm)
			r.Delete("/", s.deleteForm)
			r.Get("/style", s.formStyle)
			r.Get("/qr", s.formQR)
			r.Get("/submissions", s.listSubmissions)
			r.Post("/sessions", s.startSession)
		})
	})

	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Delete("/", s.abandonSession)
		r.Put("/answers/{qid}", s.recordAnswer)
		r.Delete("/answers/{qid}", s.clearAnswer)
		r.Post("/answers/{qid}/toggle", s.toggleOption)
		r.Post("/advance", s.advance)
		r.Post("/retreat", s.retreat)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.len()})
}

// Start begins serving HTTP traffic on addr. It blocks until the server
// stops; a graceful Shutdown returns nil.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.httpServer = srv
	s.mu.Unlock()

	if ttl := s.sessions.ttl; ttl > 0 {
		go s.sweepLoop(min(ttl, time.Minute))
	}

	s.logger.Info("server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// sweepLoop evicts idle sessions until Shutdown.
func (s *Server) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

// evictIdle drops sessions that have been idle longer than the TTL.
func (s *Server) evictIdle() {
	for _, ls := range s.sessions.sweep() {
		ls.mu.Lock()
		if !ls.session.Completed() {
			s.metrics.sessionEnded()
		}
		if ls.pending != nil {
			s.logger.Warn("dropping undelivered submission",
				"form", ls.formID,
				"session", ls.id,
				"submission", ls.pending.ID)
		}
		ls.mu.Unlock()
		s.logger.Info("session expired", "form", ls.formID, "session", ls.id)
	}
}
