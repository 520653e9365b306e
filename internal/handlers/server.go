package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pep299/article-bias-analyzer/internal/application"
	"github.com/pep299/article-bias-analyzer/internal/bias"
	"github.com/pep299/article-bias-analyzer/internal/cache"
	"github.com/pep299/article-bias-analyzer/internal/config"
	"github.com/pep299/article-bias-analyzer/internal/credential"
	"github.com/pep299/article-bias-analyzer/internal/metrics"
	"github.com/pep299/article-bias-analyzer/internal/middleware"
)

// Version is reported by the health endpoint
const Version = "v1.0.0"

// Server holds the HTTP handlers and their dependencies
type Server struct {
	config       *config.Config
	credentials  *credential.Manager
	analyzer     *bias.Analyzer
	cacheManager *cache.Manager
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewServer creates a new HTTP server over an application
func NewServer(app *application.Application) *Server {
	return &Server{
		config:       app.Config,
		credentials:  app.Credentials,
		analyzer:     app.Analyzer,
		cacheManager: app.Cache,
		metrics:      app.Metrics,
		logger:       app.Logger.Named("http"),
	}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.Logging(s.logger))

	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	// Routes that touch the key or spend it
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(s.config.APIAuthToken))

	protected.HandleFunc("/key", s.keyStatusHandler).Methods(http.MethodGet)
	protected.HandleFunc("/key", s.saveKeyHandler).Methods(http.MethodPut)
	protected.HandleFunc("/key", s.clearKeyHandler).Methods(http.MethodDelete)
	protected.HandleFunc("/analyze", s.analyzeHandler).Methods(http.MethodPost)

	// Cache operations
	protected.HandleFunc("/cache/stats", s.cacheStatsHandler).Methods(http.MethodGet)
	protected.HandleFunc("/cache", s.cacheClearHandler).Methods(http.MethodDelete)

	// Preflight requests for any route
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
