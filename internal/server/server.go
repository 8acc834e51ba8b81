// Package server wires handlers, middleware and routes, and runs the HTTP
// server until SIGINT/SIGTERM.
//
// ROUTES:
//
//	POST /auth/register                        (rate limited)
//	POST /auth/login                           (rate limited)
//	POST /auth/forgot-password                 (rate limited)
//	POST /auth/logout
//	GET  /auth/github/login                    (when configured)
//	GET  /auth/github/callback                 (when configured)
//	GET  /api/me
//	POST /api/parties
//	POST /api/parties/join
//	GET  /api/parties/{partyID}
//	GET  /api/parties/{partyID}/points
//	GET  /api/parties/{partyID}/challenges
//	POST /api/parties/{partyID}/challenges
//	POST /api/challenges/{id}/accept|complete|credit
//	GET  /api/parties/{partyID}/rewards
//	POST /api/parties/{partyID}/rewards
//	POST /api/rewards/{id}/claim|approve
//
// Everything under /api requires the session cookie.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/connection-points/internal/auth"
	"github.com/sakif/connection-points/internal/handler"
	"github.com/sakif/connection-points/internal/middleware"
	"github.com/sakif/connection-points/internal/service"
)

const rateLimitedBody = `{"error":"rate_limited","message":"Too many requests. Please wait a moment and try again."}`

type Config struct {
	Port int
	// LoginRateLimit is requests per second per client address on the
	// credential endpoints.
	LoginRateLimit float64
}

// Services is everything the handlers need. GitHub may be nil.
type Services struct {
	Identity   *service.IdentityService
	Parties    *service.PartyService
	Challenges *service.ChallengeService
	Rewards    *service.RewardService
	Points     *service.PointsService
	GitHub     handler.GitHub
}

// Server owns the router and the store, which it closes on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  io.Closer
}

func New(cfg Config, svc Services, store io.Closer, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes(svc)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes(svc Services) {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens := svc.Identity.Tokens()
	cookieName := svc.Identity.CookieName()

	authHandler := handler.NewAuthHandler(svc.Identity, svc.GitHub, cookieName, tokens.TTL(), s.logger)
	partyHandler := handler.NewPartyHandler(svc.Parties, svc.Points, s.logger)
	challengeHandler := handler.NewChallengeHandler(svc.Challenges, s.logger)
	rewardHandler := handler.NewRewardHandler(svc.Rewards, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// === Auth Routes ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit())
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/forgot-password", authHandler.HandleForgotPassword)
		})
		r.Post("/logout", authHandler.HandleLogout)

		if authHandler.GitHubEnabled() {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens, cookieName))

		r.Get("/me", authHandler.HandleMe)

		r.Post("/parties", partyHandler.HandleCreate)
		r.Post("/parties/join", partyHandler.HandleJoin)
		r.Route("/parties/{partyID}", func(r chi.Router) {
			r.Get("/", partyHandler.HandleGet)
			r.Get("/points", partyHandler.HandlePoints)
			r.Get("/challenges", challengeHandler.HandleList)
			r.Post("/challenges", challengeHandler.HandleCreate)
			r.Get("/rewards", rewardHandler.HandleList)
			r.Post("/rewards", rewardHandler.HandleCreate)
		})

		r.Post("/challenges/{id}/accept", challengeHandler.HandleAccept)
		r.Post("/challenges/{id}/complete", challengeHandler.HandleComplete)
		r.Post("/challenges/{id}/credit", challengeHandler.HandleCredit)

		r.Post("/rewards/{id}/claim", rewardHandler.HandleClaim)
		r.Post("/rewards/{id}/approve", rewardHandler.HandleApprove)
	})
}

// rateLimit throttles credential endpoints per client address. RealIP has
// already rewritten RemoteAddr from proxy headers.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	lmt := tollbooth.NewLimiter(s.config.LoginRateLimit, &limiter.ExpirableOptions{
		DefaultExpirationTTL: time.Hour,
	})
	lmt.SetIPLookups([]string{"RemoteAddr", "X-Forwarded-For", "X-Real-IP"})
	lmt.SetMessageContentType("application/json")
	lmt.SetMessage(rateLimitedBody)
	lmt.SetOnLimitReached(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Warn("rate limit reached",
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		)
	})

	return func(next http.Handler) http.Handler {
		return tollbooth.LimitHandler(lmt, next)
	}
}

// Start serves until a shutdown signal, then drains in-flight requests
// for up to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
