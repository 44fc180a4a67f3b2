package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lunastream/internal/repositories"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, authentication, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Options configures a [Server].
type Options struct {
	DB                *sql.DB
	Catalog           *tasks.CatalogEngine
	Sports            services.Sports
	Identity          IdentityResolver // nil disables identity; every caller is a guest
	AdminPasswordHash string           // bcrypt hash; empty disables the admin routes
	AllowedOrigins    []string
	Logger            *log.Logger
}

// Server is the LunaStream JSON API.
type Server struct {
	router  *BasicRouter
	handler http.Handler
	logger  *log.Logger
}

// New builds a [Server] with every route registered.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Catalog == nil {
		opts.Catalog = tasks.NewCatalogEngine(nil, nil, opts.Logger)
	}

	users := repositories.NewUserRepository(opts.DB)
	api := &API{
		users:         users,
		progress:      repositories.NewProgressRepository(opts.DB),
		notifications: repositories.NewNotificationRepository(opts.DB),
		stats:         repositories.NewStatisticsRepository(opts.DB),
		catalog:       opts.Catalog,
		sports:        opts.Sports,
		logger:        opts.Logger,
	}

	router := NewBasicRouter()
	router.Use(Identity(opts.Identity, users, opts.Logger))
	api.register(router, opts.AdminPasswordHash)

	return &Server{
		router:  router,
		handler: CORS(opts.AllowedOrigins)(Logging(opts.Logger)(router)),
		logger:  opts.Logger,
	}
}

// Handler returns the root handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
