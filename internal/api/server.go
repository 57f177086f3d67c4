// Package api provides the HTTP API server and handlers for the BakeSight application.
package api

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bakesight/bakesight-server/internal/config"
	"github.com/bakesight/bakesight-server/internal/logger"
	"github.com/bakesight/bakesight-server/internal/ratelimit"
	"github.com/bakesight/bakesight-server/internal/search"
	"github.com/bakesight/bakesight-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         store.Store
	services      *Services
	searchIndex   *search.Index
	router        *chi.Mux
	api           huma.API
	logger        *logger.Logger
	importLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st store.Store, services *Services, index *search.Index, log *logger.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	humaConfig := huma.DefaultConfig(cfg.Server.Name, "1.0.0")
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	uploadsPerMinute := cfg.Import.UploadsPerMinute
	if uploadsPerMinute <= 0 {
		uploadsPerMinute = 10
	}

	s := &Server{
		store:         st,
		services:      services,
		searchIndex:   index,
		router:        router,
		api:           api,
		logger:        log,
		importLimiter: NewRateLimiter(uploadsPerMinute, time.Minute, uploadsPerMinute),
	}

	s.registerHealthRoutes()
	s.registerImportRoutes()
	s.registerItemRoutes()
	s.registerSignalRoutes()
	s.registerModelRoutes()
	s.registerForecastRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
