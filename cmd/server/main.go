package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fitagenda/fitagenda/internal/app"
	"github.com/fitagenda/fitagenda/internal/conflict"
	"github.com/fitagenda/fitagenda/internal/config"
	"github.com/fitagenda/fitagenda/internal/handler"
	"github.com/fitagenda/fitagenda/internal/model"
	"github.com/fitagenda/fitagenda/internal/repository"
	"github.com/fitagenda/fitagenda/internal/repository/base"
	"github.com/fitagenda/fitagenda/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	migrator.Close()

	businessStart, err := model.ParseTimeOfDay(cfg.BusinessHoursStart)
	if err != nil {
		logger.Fatal("Invalid BUSINESS_HOURS_START", zap.Error(err))
	}
	businessEnd, err := model.ParseTimeOfDay(cfg.BusinessHoursEnd)
	if err != nil {
		logger.Fatal("Invalid BUSINESS_HOURS_END", zap.Error(err))
	}

	baseRepo := base.NewRepository(pool)
	ruleRepo := repository.NewRuleRepository(baseRepo, logger)
	instanceRepo := repository.NewInstanceRepository(baseRepo, logger)
	store := repository.NewStore(baseRepo, ruleRepo, instanceRepo, logger)

	checker := conflict.NewChecker(
		time.Duration(cfg.ToleranceMinutes)*time.Minute,
		businessStart,
		businessEnd,
	)
	scheduleService := service.NewScheduleService(store, checker, service.HorizonConfig{
		MaxOccurrences: cfg.HorizonOccurrences,
		Months:         cfg.HorizonMonths,
	}, logger)

	materializer := app.NewMaterializer(scheduleService,
		time.Duration(cfg.MaterializerInterval)*time.Hour, logger)
	materializer.Start(ctx)
	defer materializer.Stop()

	fiberApp := fiber.New(fiber.Config{
		AppName:      "fitagenda",
		ErrorHandler: fiberErrorHandler,
	})
	handler.NewScheduleHandler(scheduleService, logger).Register(fiberApp)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := fiberApp.Listen(cfg.HTTPAddr); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	if err := fiberApp.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"type":    "http",
			"message": err.Error(),
		},
	})
}
