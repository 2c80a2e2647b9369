package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/sujitmemane/bites/internal/auth"
	"github.com/sujitmemane/bites/internal/config"
	"github.com/sujitmemane/bites/internal/server/middleware"
	"github.com/sujitmemane/bites/internal/store/postgres"
	redisstore "github.com/sujitmemane/bites/internal/store/redis"
	"github.com/sujitmemane/bites/internal/ws"
)

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	store       *postgres.Store
	auth        *auth.Service
	rstore      *redisstore.Store
	broadcaster *ws.Broadcaster
	gateway     *ws.Gateway
	cfg         *config.Config
}

// New creates a Server with all routes wired. ctx bounds the background
// goroutines started by middleware (rate limiter cleanup).
func New(ctx context.Context, cfg *config.Config, store *postgres.Store, rstore *redisstore.Store, authSvc *auth.Service) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	// Realtime plumbing: one room router per process, bridged across
	// instances through the Redis event bus.
	wsRouter := ws.NewRouter()
	broadcaster := ws.NewBroadcaster(wsRouter, rstore.PubSub(), ws.DefaultDeliveryPolicy())
	coordinator := ws.NewCoordinator(wsRouter, rstore.Presence(), store.Users(), broadcaster)
	gateway := ws.NewGateway(coordinator, store.Users(), cfg.JWT.Secret)

	s := &Server{
		router:      router,
		store:       store,
		auth:        authSvc,
		rstore:      rstore,
		broadcaster: broadcaster,
		gateway:     gateway,
		cfg:         cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for auth endpoints.
	// 2. Authenticated group for all other endpoints.
	router.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated auth routes (register, login).
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, 5, 10))

			authConfig := huma.DefaultConfig("Bites Auth API", "1.0.0")
			authConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			authAPI := humachi.New(r, authConfig)
			registerAuthRoutes(authAPI, store, authSvc)
		})

		// Authenticated routes (everything else).
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT.Secret))
			r.Use(middleware.RateLimit(ctx, 100, 200))

			apiConfig := huma.DefaultConfig("Bites API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, store, broadcaster)
		})
	})

	// WebSocket routes. Auth happens inside the connection handshake
	// (first frame carries the token), not via the bearer middleware,
	// so browser clients can connect without custom headers.
	router.Route("/ws", func(r chi.Router) {
		registerWSRoutes(r, gateway)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s
}

// Broadcaster exposes the event fan-out so main can run its pub/sub
// bridge loop alongside the HTTP server.
func (s *Server) Broadcaster() *ws.Broadcaster {
	return s.broadcaster
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
