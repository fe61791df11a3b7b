// Package web serves the count-sheet upload form and its JSON API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/countsheet/internal/config"
	"github.com/JonMunkholm/countsheet/internal/core"
	mw "github.com/JonMunkholm/countsheet/internal/web/middleware"
)

// ReferenceStore hands out the current reference data and reloads it on
// request. *refdata.Holder implements it.
type ReferenceStore interface {
	Current() *core.Reference
	Reload(ctx context.Context) (*core.Reference, error)
}

// Server is the HTTP server.
type Server struct {
	service *core.Service
	refs    ReferenceStore
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	stopLimiters context.CancelFunc
}

// NewServer wires the middleware and routes.
func NewServer(service *core.Service, refs ReferenceStore, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		refs:    refs,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	limiterCtx, stop := context.WithCancel(context.Background())
	s.stopLimiters = stop

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	r.Use(mw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(securityHeaders(s.cfg.Security.EnableCSP))

	generateLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		r.Use(s.rateLimit(newRateLimiter(limiterCtx, s.cfg.Rate.RequestsPerMinute, time.Minute)))
		generateLimit = s.rateLimit(newRateLimiter(limiterCtx, s.cfg.Rate.GenerateLimit, time.Minute))
	}

	r.Get("/", s.handleIndex)
	r.With(generateLimit).Post("/", s.handleGenerate)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(generateLimit).Post("/generate", s.handleGenerate)

		r.Group(func(r chi.Router) {
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			}
			r.Get("/stores", s.handleStores)
			r.Get("/layouts", s.handleLayouts)
			r.Post("/reference/reload", s.handleReload)
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiters()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders sets the usual hardening headers. The pages use inline
// styles and no scripts.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy",
					"default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "json encode failed", "path", r.URL.Path, "error", err)
	}
}
