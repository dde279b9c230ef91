// Package rest exposes the similarity read API over HTTP.
package rest

import (
	"net/http"

	"mpgraph/interfaces/http/rest/handlers"
	"mpgraph/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// MetricsSource serves and records HTTP metrics
type MetricsSource interface {
	middleware.HTTPObserver
	Handler() http.Handler
}

// Router creates and configures the HTTP router
type Router struct {
	similarity     *handlers.SimilarityHandler
	health         *handlers.HealthHandler
	metrics        MetricsSource
	allowedOrigins []string
	logger         *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil.
func NewRouter(
	similarity *handlers.SimilarityHandler,
	health *handlers.HealthHandler,
	metrics MetricsSource,
	allowedOrigins []string,
	logger *zap.Logger,
) *Router {
	return &Router{
		similarity:     similarity,
		health:         health,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	var observer middleware.HTTPObserver
	if rt.metrics != nil {
		observer = rt.metrics
	}

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger, observer))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.health.Health)
	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/legislators/{legislatorID}/similarity", rt.similarity.GetSimilarity)
	})

	return router
}
