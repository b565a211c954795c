package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/girrex/suivi/internal/logger"
)

// Server represents the HTTP server
type Server struct {
	addr   string
	router *mux.Router
	server *http.Server
	log    logger.Logger
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

// HealthCheck reports the state of a dependency
type HealthCheck func(ctx context.Context) error

// Dependencies are the collaborators the server routes to
type Dependencies struct {
	Actions    ActionUseCase
	Diffusions DiffusionUseCase
	Auth       *AuthMiddleware
	RateLimit  *RateLimitMiddleware
	Hub        *Hub
	Checks     map[string]HealthCheck
}

// NewServer creates a new HTTP server
func NewServer(config ServerConfig, deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}

	router := NewRouter(config, deps, log)

	return &Server{
		addr:   ":" + config.Port,
		router: router,
		log:    log,
		server: &http.Server{
			Addr:         ":" + config.Port,
			Handler:      router,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
	}
}

// NewRouter builds the route tree and middleware chain
func NewRouter(config ServerConfig, deps Dependencies, log logger.Logger) *mux.Router {
	if log == nil {
		log = logger.NewNop()
	}
	router := mux.NewRouter()

	router.Use(correlationMiddleware)
	router.Use(loggingMiddleware(log))
	router.Use(recoveryMiddleware(log))
	router.Use(corsMiddleware(config.AllowedOrigins))

	router.HandleFunc("/health", healthHandler(deps.Checks)).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	if deps.Auth != nil {
		api.Use(deps.Auth.RequireAuth)
	}
	if deps.RateLimit != nil {
		api.Use(deps.RateLimit.RateLimit)
	}
	// preflight requests never reach a route, let the CORS middleware answer them
	api.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	if deps.Actions != nil {
		NewActionHandler(deps.Actions, log).RegisterRoutes(api)
	}
	if deps.Diffusions != nil {
		NewDiffusionHandler(deps.Diffusions, log).RegisterRoutes(api)
	}
	if deps.Hub != nil {
		api.HandleFunc("/ws", deps.Hub.ServeWS).Methods("GET")
	}

	return router
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		writeJSON(w, status, Envelope{
			Status:  status == http.StatusOK,
			Message: http.StatusText(status),
			Data:    results,
		})
	}
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info(context.Background(), "starting HTTP server", map[string]interface{}{"addr": s.addr})
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}
