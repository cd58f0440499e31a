package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/evalarena/evalarena-go-api/internal/auth"
	"github.com/evalarena/evalarena-go-api/internal/config"
	"github.com/evalarena/evalarena-go-api/internal/database"
	"github.com/evalarena/evalarena-go-api/internal/handler"
	"github.com/evalarena/evalarena-go-api/internal/middleware"
	"github.com/evalarena/evalarena-go-api/internal/models"
	"github.com/evalarena/evalarena-go-api/internal/repository"
	"github.com/evalarena/evalarena-go-api/internal/router"
	"github.com/evalarena/evalarena-go-api/internal/service"
	"github.com/evalarena/evalarena-go-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.EvaluationSetRow{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	opts := service.EvaluationServiceOptions{
		CacheTTL:     cfg.ShareCacheTTL,
		EventSubject: cfg.EventSubject,
	}

	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		opts.Cache = redisClient
	}

	if cfg.NATSURL != "" {
		natsConn, err := database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
		opts.Events = natsConn
	}

	chatClient, err := ai.NewRouterClient(ai.RouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to create model router client: %v", err)
	}
	responder := ai.NewResponder(chatClient, cfg.ModelMaxAttempts, logger)
	judge := ai.NewJudge(chatClient, cfg.JudgeModel, cfg.ModelMaxAttempts, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	transientStore := repository.NewTransientStore()
	setRepo := repository.NewEvaluationSetRepository(db)

	evaluationService := service.NewEvaluationService(transientStore, setRepo, responder, judge, validate, logger, opts)
	reviewService := service.NewManualReviewService(transientStore, setRepo, validate, logger)

	evaluationHandler := handler.NewEvaluationHandler(evaluationService, reviewService, logger, !cfg.IsProduction())

	verifier := auth.NewJWTVerifier(cfg.JWTSecret)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler: evaluationHandler,
		OptionalIdentity:  middleware.OptionalIdentity(verifier, cfg.AuthTimeout, logger),
		RequireIdentity:   middleware.RequireIdentity(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
