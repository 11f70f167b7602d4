package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verisona-ai/analysis-service/internal/analyzer"
	"github.com/verisona-ai/analysis-service/internal/cache"
	"github.com/verisona-ai/analysis-service/internal/config"
	"github.com/verisona-ai/analysis-service/internal/events"
	"github.com/verisona-ai/analysis-service/internal/handlers"
	"github.com/verisona-ai/analysis-service/internal/mapper"
	"github.com/verisona-ai/analysis-service/internal/repositories/postgres"
	"github.com/verisona-ai/analysis-service/internal/services"
	"github.com/verisona-ai/analysis-service/internal/utils"
	"github.com/verisona-ai/analysis-service/internal/validator"
	"github.com/verisona-ai/analysis-service/internal/workers"
	"github.com/verisona-ai/analysis-service/pkg"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	if err := postgres.Migrate(db); err != nil {
		logger.Error("failed to migrate report table", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var publisher events.EventPublisher = events.NoopEventPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.KafkaBrokers,
			TopicName:    cfg.EventTopic,
			Logger:       utils.ToSlogLogger(logger),
		})
		if err != nil {
			logger.Error("failed to create event publisher", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("no kafka brokers configured, report events disabled")
	}
	defer publisher.Close()

	pool := workers.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize, logger)

	v := validator.New()
	analysisService := services.NewAnalysisService(
		postgres.NewReportPostgreSQL(db),
		postgres.NewSessionPostgreSQL(db),
		postgres.NewUserPostgreSQL(db),
		mapper.New(v.Response()),
		analyzer.NewClient(analyzer.Config{
			BaseURL:    cfg.AnalyzerBaseURL,
			APIKey:     cfg.AnalyzerAPIKey,
			WorkflowID: cfg.AnalyzerWorkflowID,
			Timeout:    cfg.AnalyzerTimeout,
		}, logger),
		cache.NewRedisCache(redisClient, logger),
		publisher,
		pool,
		logger,
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlers.NewHandlerManager(analysisService, v, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("analysis service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := pool.Shutdown(ctx); err != nil {
		logger.Error("worker pool shutdown incomplete", "error", err)
	}
	logger.Info("shutdown complete")
}
