// Package api serves a read-only HTTP view of the registered experiments,
// samples and datasets.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ynoir/obit-microscopy-core-technology/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  *store.Store
	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// A nil or empty allowedOrigins disables CORS headers.
func NewServer(st *store.Store, allowedOrigins []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	if len(allowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	api := humachi.New(router, huma.DefaultConfig("Microscopy Dropbox API", "1.0.0"))
	RegisterErrorHandler()

	s := &Server{
		store:  st,
		router: router,
		api:    api,
		logger: logger,
	}

	s.registerHealthRoutes()
	s.registerExperimentRoutes()
	s.registerSampleRoutes()
	s.registerDatasetRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
