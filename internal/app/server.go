package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/markdave123-py/aspiro/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/aspiro/internal/api/middlewares"
	"github.com/markdave123-py/aspiro/internal/config"
	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/metrics"
)

const requestTimeout = 60 * time.Second

// Routes carries everything the router mounts. Limiter may be nil, which
// leaves the auth endpoints unthrottled.
type Routes struct {
	Auth    *handlers.AuthHandler
	Chat    *handlers.ChatHandler
	History *handlers.HistoryHandler
	Account *handlers.AccountHandler
	Pages   *handlers.PagesHandler

	Gate     appMiddleware.Authenticator
	Limiter  appMiddleware.Counter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
}

// NewRouter builds the HTTP surface.
func NewRouter(cfg *config.Config, rt Routes) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.Logging(rt.Logger))
	r.Use(appMiddleware.Metrics(rt.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:         300,
	}))

	// public endpoints
	r.Get("/health", rt.Pages.Health)
	r.Get("/", rt.Pages.Landing)
	r.Get("/chat", rt.Pages.App)
	r.Get("/app", rt.Pages.App)
	r.Get("/pricing", rt.Pages.Pricing)
	r.Handle("/static/*", rt.Pages.Static())
	r.Handle("/metrics", promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{}))
	r.Post("/logout", rt.Auth.Logout)

	r.Group(func(public chi.Router) {
		if rt.Limiter != nil {
			public.Use(appMiddleware.RateLimit(rt.Limiter, cfg.AuthRatePerMinute, rt.Metrics, rt.Logger))
		}
		public.Post("/register", rt.Auth.Register)
		public.Post("/login", rt.Auth.Login)
		public.Post("/google-login", rt.Auth.GoogleLogin)
	})

	// protected endpoints
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.RequireUser(rt.Gate))
		protected.Get("/me", rt.Auth.Me)
		protected.Post("/chat", rt.Chat.Chat)
		protected.Get("/chat-history", rt.History.ListSessions)
		protected.Get("/chat-history/{sessionID}", rt.History.GetSession)
		protected.Get("/user-stats", rt.History.Stats)
		protected.Post("/submit-feedback", rt.Account.SubmitFeedback)
		protected.Put("/update-profile", rt.Account.UpdateProfile)
		protected.Get("/subscription", rt.Account.Subscription)
		protected.Post("/upgrade-subscription", rt.Account.UpgradeSubscription)
	})

	return r
}

// Server wraps the HTTP server instance.
type Server struct {
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(cfg *config.Config, handler http.Handler, logger logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
