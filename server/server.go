package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/dormportal/auth"
	"github.com/jrsteele09/dormportal/identity"
	"github.com/jrsteele09/dormportal/internal/config"
	"github.com/jrsteele09/dormportal/tenants"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the server is built from. They are constructed once at process
// start and injected here.
type Deps struct {
	Repos    auth.Repos
	Verifier identity.Verifier
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	repos  auth.Repos
	hasher *tenants.Hasher
	issuer *auth.Issuer
	login  *auth.LoginService
	gate   *auth.Gate
}

// New wires the auth services from config and deps. options are applied after the
// config-derived ones, so tests can swap the clock.
func New(cfg config.Config, deps Deps, options ...auth.Option) (*Server, error) {
	if deps.Verifier == nil {
		deps.Verifier = identity.Disabled{}
	}

	hasher := tenants.NewHasher(cfg.GetBcryptCost())
	opts := []auth.Option{auth.WithHasher(hasher)}
	opts = append(opts, options...)

	if cfg.GetLoginMaxFailures() > 0 {
		limiter, err := auth.NewFailureLimiter(cfg.GetLoginMaxFailures(), cfg.GetLoginFailureWindow(), cfg.GetLimiterMaxKeys(), opts...)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to create login limiter: %w", err)
		}
		opts = append(opts, auth.WithLimiter(limiter))
	}
	if cfg.GetLoginMaxSourceFailures() > 0 {
		limiter, err := auth.NewFailureLimiter(cfg.GetLoginMaxSourceFailures(), cfg.GetLoginFailureWindow(), cfg.GetLimiterMaxKeys(), opts...)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to create source limiter: %w", err)
		}
		opts = append(opts, auth.WithSourceLimiter(limiter))
	}

	issuer, err := auth.NewIssuer(deps.Repos.Sessions, cfg.GetSessionTTL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session issuer: %w", err)
	}
	loginService, err := auth.NewLoginService(deps.Repos, deps.Verifier, issuer, opts...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create login service: %w", err)
	}
	gate, err := auth.NewGate(deps.Repos, opts...)
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create authorization gate: %w", err)
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		repos:  deps.Repos,
		hasher: hasher,
		issuer: issuer,
		login:  loginService,
		gate:   gate,
	}

	if err := s.InitialiseSystem(context.Background()); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path := "", route
		if parts := strings.SplitN(route, " ", 2); len(parts) > 1 {
			method, path = parts[0], parts[1]
		}
		log.Debug().Str("method", method).Str("path", path).Msg("route registered")
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
