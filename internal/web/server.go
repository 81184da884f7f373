// Package web provides the HTTP server and handlers for the project explorer.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/projview/internal/config"
	"github.com/JonMunkholm/projview/internal/core"
	"github.com/JonMunkholm/projview/internal/web/middleware"
)

// Server is the HTTP server for the project explorer.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	rate     *middleware.RateLimiter
	loadRate *middleware.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.rate = middleware.NewRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.rate.OnLimit = s.rateLimited
		s.loadRate = middleware.NewRateLimiter(cfg.Rate.LoadLimit, time.Minute)
		s.loadRate.OnLimit = s.rateLimited
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
	if s.rate != nil {
		s.router.Use(s.rate.Middleware)
	}
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Session(middleware.SessionCookie{
			Name:   s.cfg.Session.CookieName,
			Secure: s.cfg.Session.CookieSecure,
		}))

		// Pages
		r.Get("/", s.handleDashboard)
		r.Get("/explore", s.handleExplore)

		// Loads replace or extend the session's collection
		r.Group(func(r chi.Router) {
			if s.loadRate != nil {
				r.Use(s.loadRate.Middleware)
			}
			r.Post("/load/upload", s.handleLoadUpload)
			r.Post("/load/paste", s.handleLoadPaste)
			r.Post("/load/url", s.handleLoadURL)
		})
		r.Post("/load/clear", s.handleClear)

		// Downloads
		r.Get("/export/{kind}", s.handleExport)
		r.Get("/preset.yaml", s.handlePresetDownload)

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(s.cfg.Security))

			r.Get("/labels", s.handleAPILabels)
			r.Get("/project/{id}", s.handleAPIProject)
			r.Get("/columns", s.handleAPIColumns)
			r.Get("/sources", s.handleAPISources)
			r.Get("/loads", s.handleAPILoads)
			r.Get("/status", s.handleAPIStatus)
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// RunBackground prunes rate limiter state until ctx is cancelled.
func (s *Server) RunBackground(ctx context.Context) {
	if s.rate == nil {
		return
	}
	go s.rate.Run(ctx)
	go s.loadRate.Run(ctx)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, http.StatusTooManyRequests)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.service.Sessions().Len(),
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
