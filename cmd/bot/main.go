package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/khidmaty/khidmaty/internal/config"
	"github.com/khidmaty/khidmaty/internal/handler"
	"github.com/khidmaty/khidmaty/internal/repository"
	"github.com/khidmaty/khidmaty/internal/service"
	"github.com/khidmaty/khidmaty/internal/session"
	"github.com/khidmaty/khidmaty/internal/validator"
	"github.com/khidmaty/khidmaty/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Khidmaty",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := validator.New()

	providerRepo := repository.NewProviderRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)

	registry := service.NewRegistryService(pool, providerRepo, requestRepo)
	matching := service.NewMatchingService(pool, providerRepo, requestRepo)
	subscriptions := service.NewSubscriptionService(pool, couponRepo, providerRepo, cfg.Bot.CouponPrefix)
	admin := service.NewAdminService(providerRepo, cfg.Bot.AdminActorID)

	dispatcher := session.NewDispatcher(session.NewStore(), registry, matching, subscriptions, admin, session.Config{
		MatchRadiusKm: cfg.Bot.MatchRadiusKm,
		MaxResults:    cfg.Bot.MaxResults,
	})

	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	webhookHandler := handler.NewWebhookHandler(dispatcher, validate)
	app.Post("/webhook", webhookHandler.Receive)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
