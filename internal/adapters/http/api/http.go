// Package api exposes the arena service over HTTP: JSON handlers for every
// flow, SSE for streamed chat, and the leaderboard and statistics views.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/mu3/internal/adapters/http/site"
	"github.com/okian/mu3/internal/adapters/http/swagger"
	"github.com/okian/mu3/internal/adapters/storage"
	service "github.com/okian/mu3/internal/app"
	"github.com/okian/mu3/internal/domain/catalog"
	"github.com/okian/mu3/internal/domain/validation"
	"github.com/okian/mu3/internal/errreg"
	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/internal/probe"
	"github.com/okian/mu3/pkg/logger"
)

// SessionHeader names the session a request belongs to.
const SessionHeader = "X-Session-ID"

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 2 * time.Minute
)

// Dependencies required by HTTP handlers. *service.Service implements it.
type Dependencies interface {
	Session(id string) (*service.Session, error)
	EndSession(id string) bool
	History(ctx context.Context, kind string) ([]json.RawMessage, error)

	Catalog() *catalog.Catalog
	Gateway() *gateway.Gateway
	Store() storage.Store
	Registry() *errreg.Registry
	Prober() *probe.Prober

	GetStats() map[string]any
}

// Server wires HTTP routes for the arena API.
type Server struct {
	deps     Dependencies
	registry *errreg.Registry
	checker  *validation.Checker
	info     site.Info
	origins  []string
	debug    bool
	metrics  bool
	logger   logger.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithDebug includes stack traces in top-level failure responses.
func WithDebug(debug bool) Option {
	return func(s *Server) { s.debug = debug }
}

// WithMetrics controls whether /healthz serves the Prometheus registry.
func WithMetrics(enabled bool) Option {
	return func(s *Server) { s.metrics = enabled }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithInfo sets the application info shown on the home view.
func WithInfo(info site.Info) Option {
	return func(s *Server) { s.info = info }
}

// WithLanguage selects the language of validation messages.
func WithLanguage(lang string) Option {
	return func(s *Server) { s.checker = validation.NewChecker(lang) }
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		registry: deps.Registry(),
		checker:  validation.NewChecker(validation.LangArabic),
		info:     site.DefaultInfo(),
		origins:  []string{"*"},
		metrics:  true,
		logger:   logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with every route and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(chimiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", SessionHeader, requestIDHeader},
		ExposedHeaders:   []string{SessionHeader, requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	site.Register(r, s.info)
	swagger.Register(r)

	if s.metrics {
		r.Get("/healthz", s.handleHealth)
	}
	r.Get("/readyz", s.handleReady)
	r.Get("/dashboard", s.handleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Get("/models", s.handleListModels)
		r.Get("/models/{id}", s.handleGetModel)
		r.Post("/validate", s.handleValidate)

		r.Get("/battle", s.handleGetBattle)
		r.Post("/battle", s.handleStartBattle)
		r.Post("/battle/vote", s.handleVote)
		r.Post("/battle/reset", s.handleResetBattle)

		r.Get("/chat", s.handleGetChat)
		r.Post("/chat", s.handleSendChat)
		r.Delete("/chat", s.handleClearChat)

		r.Get("/images", s.handleGetImages)
		r.Post("/images", s.handleGenerateImage)
		r.Delete("/images", s.handleClearImages)

		r.Post("/vision", s.handleVision)
		r.Post("/function", s.handleCallFunction)

		r.Get("/system", s.handleSystem)

		r.Get("/errors", s.handleListErrors)
		r.Get("/errors/stats", s.handleErrorStats)
		r.Delete("/errors", s.handleClearErrors)

		r.Get("/preferences", s.handleGetPreferences)
		r.Put("/preferences", s.handlePutPreferences)

		r.Get("/history/{kind}", s.handleHistory)
		r.Delete("/session", s.handleEndSession)

		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/stats", s.handleStats)
	})
	// Streams run as long as the answer does.
	r.Post("/chat/stream", s.handleStreamChat)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, errors.New(notFoundMessage))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethod, nil)
	})
	return r
}

const notFoundMessage = "الصفحة المطلوبة غير موجودة"

// session resolves the caller's session and echoes its id back.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := s.deps.Session(r.Header.Get(SessionHeader))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	w.Header().Set(SessionHeader, sess.ID)
	return sess, true
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
