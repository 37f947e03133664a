package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brandloom/api/internal/archive"
	"github.com/brandloom/api/internal/client"
	"github.com/brandloom/api/internal/config"
	"github.com/brandloom/api/internal/handler"
	"github.com/brandloom/api/internal/middleware"
	"github.com/brandloom/api/internal/service"
	"github.com/brandloom/api/internal/store/redisstore"
	"github.com/brandloom/api/internal/worker"
	"github.com/brandloom/api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		zlog.Warn("Redis not available", zap.Error(err))
	}

	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	// Stores and pipeline
	dataStore := redisstore.New(redisClient)
	builder := archive.NewBuilder(dataStore, cfg.Export.Dir)

	// Archive mirroring to R2 is optional
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			zlog.Warn("R2 client not initialized", zap.Error(err))
		} else {
			storageClient = r2Client
		}
	} else {
		zlog.Info("R2 storage not configured, archives are kept locally only")
	}

	exportService := service.NewExportService(
		dataStore, dataStore, builder, asynqClient, storageClient, cfg.Export.Dir, zlog)

	validate := validator.New()
	exportHandler := handler.NewExportHandler(exportService, validate)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":   redisClient.Ping(c.Context()).Err() == nil,
				"storage": storageClient != nil,
			},
		})
	})

	api := app.Group("/api")
	api.Post("/workspaces/:workspaceId/export",
		rateLimiter.ExportLimit(cfg.RateLimit.ExportPerHour), exportHandler.Start)
	api.Get("/export/jobs/:jobId", exportHandler.Status)
	api.Get("/export/jobs/:jobId/download", exportHandler.Download)
	api.Post("/export/jobs/:jobId/process", exportHandler.Process)
	api.Post("/export/cleanup",
		rateLimiter.CleanupLimit(cfg.RateLimit.CleanupPerHour), exportHandler.Cleanup)

	// Worker server and retention sweep schedule
	go startWorkerServer(cfg, exportService, zlog)
	go startSweepScheduler(cfg, redisOpt, zlog)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		zlog.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("server shutdown error", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Server.Port
	zlog.Info("server starting", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func startWorkerServer(cfg *config.Config, exportService *service.ExportService, zlog *zap.Logger) {
	asynqLogLevel := asynq.InfoLevel
	switch {
	case strings.EqualFold(cfg.Server.LogLevel, "debug"):
		asynqLogLevel = asynq.DebugLevel
	case strings.EqualFold(cfg.Server.LogLevel, "warn"):
		asynqLogLevel = asynq.WarnLevel
	case strings.EqualFold(cfg.Server.LogLevel, "error"):
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Export.Concurrency,
			Queues: map[string]int{
				"exports": 8,
				"default": 2,
			},
			LogLevel: asynqLogLevel,
		},
	)

	exportWorker := worker.NewExportWorker(exportService, zlog)
	cleanupWorker := worker.NewCleanupWorker(exportService, cfg.Export.RetentionHours, zlog)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeExport, exportWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeCleanup, cleanupWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		zlog.Error("asynq worker error", zap.Error(err))
	}
}

func startSweepScheduler(cfg *config.Config, redisOpt asynq.RedisClientOpt, zlog *zap.Logger) {
	if cfg.Export.SweepInterval == "" {
		zlog.Info("retention sweep schedule disabled")
		return
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register(cfg.Export.SweepInterval, service.NewCleanupTask()); err != nil {
		zlog.Error("failed to register sweep schedule", zap.Error(err))
		return
	}
	zlog.Info("retention sweep scheduled", zap.String("interval", cfg.Export.SweepInterval))
	if err := scheduler.Run(); err != nil {
		zlog.Error("asynq scheduler error", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
