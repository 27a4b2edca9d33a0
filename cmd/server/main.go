package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sacco-hub/internal/adapters/http/middleware"
	"sacco-hub/internal/adapters/http/routes"
	"sacco-hub/internal/adapters/mailer"
	"sacco-hub/internal/adapters/mpesa"
	"sacco-hub/internal/adapters/persistence/models"
	"sacco-hub/internal/config"
	"sacco-hub/internal/core/services"
	"sacco-hub/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// @title SACCO Hub API
// @version 1.0
// @description Savings and credit cooperative: groups, loans, savings and notifications

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if _, err := logger.Init(os.Getenv("APP_MODE")); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(); err != nil {
		logger.L().Fatalw("❌ Application terminated with error", "error", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.L().Info("✅ Database migration completed")

	if err := config.NewSeeder(db, cfg).Run(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	var mail services.Mailer
	if cfg.Mail.Enabled {
		m, err := mailer.New(cfg.Mail)
		if err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
		mail = m
	}

	svc := services.New(db, cfg, mpesa.NewClient(cfg.MPesa), mail)

	cron := svc.Cron()
	if err := cron.Start(); err != nil {
		return fmt.Errorf("start cron: %w", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SACCO Hub API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	middleware.Setup(app, cfg)
	routes.Setup(app, svc, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.L().Infow("🚀 Server starting", "port", cfg.Port, "mode", cfg.AppMode)
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.L().Info("🛑 Shutting down server...")

		cron.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := app.ShutdownWithContext(shutdownCtx)
		svc.Notification.Wait()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.L().Info("✅ Server stopped gracefully")
		return nil
	})

	return g.Wait()
}
