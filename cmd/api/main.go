package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/aspiro/internal/app"
	"github.com/markdave123-py/aspiro/internal/config"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	application.Logger.Info(ctx, "Aspiro AI is running", "port", cfg.Port, "env", cfg.Env)
	if err := application.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	application.Logger.Info(context.Background(), "shutdown complete")
}
