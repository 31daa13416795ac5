// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/aspiro/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/aspiro/internal/api/middlewares"
	"github.com/markdave123-py/aspiro/internal/auth"
	"github.com/markdave123-py/aspiro/internal/config"
	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/core/cache"
	db "github.com/markdave123-py/aspiro/internal/core/database"
	"github.com/markdave123-py/aspiro/internal/core/history_engine"
	"github.com/markdave123-py/aspiro/internal/core/llm"
	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/metrics"
	"github.com/markdave123-py/aspiro/internal/services"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	DBClient *db.DatabaseClient
	Cache    *cache.Redis
	Recorder *history_engine.HistoryRecorder
	LLM      *llm.GeminiLLM
	Server   *Server
	Logger   logging.Logger

	closeOnce sync.Once
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, cfg.Env)
	if cfg.EphemeralSecret {
		logger.Warn(ctx, "JWT_SECRET not set; using a random per-process secret, tokens will not survive a restart")
	}

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Logger: logger}

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	logger.Info(ctx, "database initialized and ready")

	var limiter appMiddleware.Counter
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedis(appCtx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize redis: %w", err)
		}
		a.Cache = redisClient
		limiter = redisClient
		logger.Info(ctx, "redis initialized; auth rate limiting enabled", "per_minute", cfg.AuthRatePerMinute)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	hasher, err := auth.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err != nil {
		a.Close()
		return nil, err
	}
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL, auth.WithLeeway(cfg.TokenLeeway))
	if err != nil {
		a.Close()
		return nil, err
	}
	verifier, err := auth.NewGoogleVerifier(ctx, cfg.GoogleClientID, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("couldn't initialize google verifier: %w", err)
	}
	if cfg.GoogleClientID == "" {
		logger.Warn(ctx, "GOOGLE_CLIENT_ID not set; google login will fail")
	}

	var provider core.LLMProvider
	if cfg.AIAPIKey != "" {
		gemini, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
		}
		a.LLM = gemini
		provider = gemini
	} else {
		logger.Warn(ctx, "GEMINI_API_KEY not set; chat will fail")
	}

	users := services.NewUserService(dbClient, hasher, tokens, verifier, m, logger)
	history := services.NewHistoryService(dbClient, cfg.SessionIdleTimeout)
	feedback := services.NewFeedbackService(dbClient)
	subscriptions := services.NewSubscriptionService(dbClient, services.StubGateway{}, cfg.PaymentAutoConfirm, logger)

	a.Recorder = history_engine.NewHistoryRecorder(history, cfg.HistoryWorkers, cfg.HistoryQueueSize, m, logger)
	chat := services.NewChatService(provider, a.Recorder, logger)

	router := NewRouter(cfg, Routes{
		Auth:     handlers.NewAuthHandler(users),
		Chat:     handlers.NewChatHandler(chat),
		History:  handlers.NewHistoryHandler(history),
		Account:  handlers.NewAccountHandler(users, feedback, subscriptions),
		Pages:    handlers.NewPagesHandler(cfg.LandingPage, cfg.StaticDir, dbClient),
		Gate:     users,
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})
	a.Server = NewServer(cfg, router, logger)

	return a, nil
}

// Run serves until ctx is cancelled, then stops accepting requests, drains
// pending history writes and releases resources.
func (a *App) Run(ctx context.Context) error {
	a.Recorder.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}

// Close is idempotent and safe to call on a partially built App.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.Recorder != nil {
		a.Recorder.Close()
	}
	var errs []error
	if a.LLM != nil {
		errs = append(errs, a.LLM.Close())
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.DBClient != nil {
		errs = append(errs, a.DBClient.Close())
	}
	if err := errors.Join(errs...); err != nil && a.Logger != nil {
		a.Logger.Error(context.Background(), "close resources", "err", err)
	}
}
