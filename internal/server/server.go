// package server contains middleware & handlers for the mixtape web service
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                                               // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler, middleware ...Middleware) // Handle registers a handler for the specified method and path
	ServeHTTP(w http.ResponseWriter, r *http.Request)                           // ServeHTTP implements http.Handler for the entire router
}

// UserStore persists accounts. Satisfied by repositories.UserRepository.
type UserStore interface {
	Create(user *models.User) error
	Get(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
}

// QueueStore persists mixtape queues. Satisfied by repositories.QueueRepository.
type QueueStore interface {
	Add(entry *models.QueueEntry) error
	Remove(userID, trackID string) error
	List(userID string) ([]models.QueueEntry, error)
}

// RevocationStore records revoked session tokens. Satisfied by repositories.TokenRepository.
type RevocationStore interface {
	RevocationChecker
	Revoke(jti, userID string, expiresAt time.Time) error
	Purge(cutoff time.Time) (int64, error)
}

// Expander grows a queue from seed songs. Satisfied by tasks.PlaylistExpander.
type Expander interface {
	Expand(ctx context.Context, userID string, seeds []models.Song) (*tasks.ExpandResult, error)
}

// Deps are the collaborators the HTTP API is built from.
type Deps struct {
	Users       UserStore
	Queue       QueueStore
	Revocations RevocationStore
	Analyzer    services.Analyzer
	Catalog     services.Catalog
	Expander    Expander
	Tokens      *TokenIssuer
	Logger      *log.Logger
}

// Options configures the listening server.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

var _ Router = (*BasicRouter)(nil)

// Server is the mixtape JSON API.
type Server struct {
	deps   Deps
	opts   Options
	router *BasicRouter
	logger *log.Logger
}

// New builds the API and registers every route.
func New(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		router: NewBasicRouter(),
		logger: deps.Logger.WithPrefix("http"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(Recoverer(s.logger), RequestLogger(s.logger), CORS(DefaultCORSOptions(s.opts.AllowedOrigins)))

	auth := RequireAuth(s.deps.Tokens, s.deps.Revocations, s.logger)

	r.HandleFunc(http.MethodGet, "/health", s.handleHealth)

	r.HandleFunc(http.MethodPost, "/api/auth/signup", s.handleSignup)
	r.HandleFunc(http.MethodPost, "/api/auth/login", s.handleLogin)
	r.HandleFunc(http.MethodGet, "/api/auth/me", s.handleMe, auth)
	r.HandleFunc(http.MethodPost, "/api/auth/logout", s.handleLogout, auth)

	r.HandleFunc(http.MethodPost, "/api/generate", s.handleGenerate, auth)
	r.HandleFunc(http.MethodPost, "/api/add_song", s.handleAddSong, auth)
	r.HandleFunc(http.MethodPost, "/api/remove_song", s.handleRemoveSong, auth)
	r.HandleFunc(http.MethodGet, "/api/mixtape_queue", s.handleQueue, auth)
	r.HandleFunc(http.MethodPost, "/api/generate_playlist_from_songs", s.handleExpand, auth)
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
