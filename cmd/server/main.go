package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hungbv115/education-backend/internal/app"
	"github.com/hungbv115/education-backend/internal/config"
	"github.com/hungbv115/education-backend/internal/geo"
	"github.com/hungbv115/education-backend/internal/notification"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	infra, err := app.NewInfrastructure(ctx, *cfg)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}

	dispatcher := notification.NewSMTPDispatcher(
		cfg.Mail.Address(),
		cfg.Mail.Username,
		cfg.Mail.Password,
		cfg.Mail.From,
	)

	var resolver geo.Resolver = geo.Disabled{}
	if cfg.Geo.Enabled {
		resolver = geo.NewIPAPIResolver(cfg.Geo.Endpoint, cfg.Geo.Timeout.Duration)
	}

	application := app.NewApp(infra, cfg, dispatcher, resolver)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		infra.Logger().Info("Received shutdown signal")
		cancel()
	}()

	if err := application.Run(ctx); err != nil {
		infra.Logger().Fatal("Application failed", zap.Error(err))
	}
}
