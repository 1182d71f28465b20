package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pricehawk/pricehawk/internal/api"
	"github.com/pricehawk/pricehawk/internal/api/handlers"
	"github.com/pricehawk/pricehawk/internal/config"
	"github.com/pricehawk/pricehawk/internal/database"
	"github.com/pricehawk/pricehawk/internal/dispatch"
	"github.com/pricehawk/pricehawk/internal/fetch"
	"github.com/pricehawk/pricehawk/internal/services"
)

func main() {
	// Load .env if present, real environment wins
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Repositories
	products := database.NewProductRepository(db.Pool)
	subscriptions := database.NewSubscriptionRepository(db.Pool)
	notifications := database.NewNotificationRepository(db.Pool)
	forecasts := database.NewForecastRepository(db.Pool)

	// Fetch adapters
	registry := fetch.NewRegistry(cfg.Fetch.DefaultSource)
	registry.Register("catalog", fetch.NewCatalogFetcher("catalog"))
	registry.Register("amazon", fetch.NewCatalogFetcher("amazon"))
	registry.Register("flipkart", fetch.NewCatalogFetcher("flipkart"))

	// Delivery channel: Telegram when a token is configured, log otherwise
	var dispatcher dispatch.Dispatcher
	if cfg.Telegram.BotToken != "" {
		tgBot, err := bot.New(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatalf("Failed to initialize Telegram bot: %v", err)
		}
		dispatcher = dispatch.NewTelegramDispatcher(tgBot, logger)
		logger.Info("Telegram dispatcher enabled")
	} else {
		dispatcher = dispatch.NewLogDispatcher(logger)
		logger.Info("No Telegram token configured, notifications go to the log")
	}

	// Services
	cacheTTL, _ := time.ParseDuration(cfg.Forecast.CacheTTL)
	trackingService := services.NewTrackingService(products, subscriptions, logger)
	notificationService := services.NewNotificationService(notifications, logger)
	forecastService := services.NewForecastService(products, redis, cacheTTL, logger)
	matchingService := services.NewMatchingService(services.TokenSimilarity{}, cfg.Clustering.Threshold, logger)
	cleanupService := services.NewCleanupService(notifications, forecasts, products, logger)
	refreshService := services.NewRefreshService(
		products, forecasts,
		trackingService, notificationService, forecastService,
		registry, dispatcher, logger,
	)

	// Background jobs
	refreshInterval, _ := time.ParseDuration(cfg.Refresh.Interval)
	staleAfter, _ := time.ParseDuration(cfg.Refresh.StaleAfter)
	refreshService.Start(services.RefreshConfig{
		Interval:          refreshInterval,
		StaleAfter:        staleAfter,
		BatchSize:         cfg.Refresh.BatchSize,
		ForecastMinPoints: 10,
		ForecastDaysAhead: cfg.Forecast.DefaultDaysAhead,
	})
	defer refreshService.Stop()

	cleanupConfig := services.CleanupConfig{
		NotificationRetentionDays: cfg.Cleanup.NotificationRetentionDays,
		ForecastRetentionDays:     cfg.Cleanup.ForecastRetentionDays,
		IntervalMinutes:           cfg.Cleanup.IntervalMinutes,
	}
	cleanupService.Start(cleanupConfig)
	defer cleanupService.Stop()

	// HTTP server
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, db, redis, api.Handlers{
		Tracking:      handlers.NewTrackingHandler(trackingService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		Products:      handlers.NewProductHandler(trackingService, forecastService),
		Search:        handlers.NewSearchHandler(registry, matchingService, logger),
		Admin:         handlers.NewAdminHandler(cleanupService, cleanupConfig),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
