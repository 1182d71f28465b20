package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// CleanupConfig defines retention windows for derived and historical data.
// Price history is append-only and is never cleaned up.
type CleanupConfig struct {
	NotificationRetentionDays int
	ForecastRetentionDays     int
	IntervalMinutes           int
}

// CleanupService removes expired notifications and stale forecasts on a
// schedule.
type CleanupService struct {
	notifications NotificationStore
	forecasts     ForecastStore
	products      ProductStore
	logger        *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewCleanupService(notifications NotificationStore, forecasts ForecastStore, products ProductStore, logger *logrus.Logger) *CleanupService {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupService{
		notifications: notifications,
		forecasts:     forecasts,
		products:      products,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		now:           time.Now,
	}
}

// Start begins periodic cleanup. An initial pass runs immediately.
func (c *CleanupService) Start(config CleanupConfig) {
	c.logger.WithFields(logrus.Fields{
		"notification_retention_days": config.NotificationRetentionDays,
		"forecast_retention_days":     config.ForecastRetentionDays,
	}).Info("Starting cleanup service")

	go func() {
		if err := c.RunCleanup(c.ctx, config); err != nil {
			c.logger.Errorf("Initial cleanup failed: %v", err)
		}
	}()

	ticker := time.NewTicker(time.Duration(config.IntervalMinutes) * time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if err := c.RunCleanup(c.ctx, config); err != nil {
					c.logger.Errorf("Cleanup failed: %v", err)
				}
			}
		}
	}()
}

// Stop halts the cleanup loop.
func (c *CleanupService) Stop() {
	c.logger.Info("Stopping cleanup service")
	c.cancel()
}

// RunCleanup performs one cleanup pass.
func (c *CleanupService) RunCleanup(ctx context.Context, config CleanupConfig) error {
	now := c.now()

	deleted, err := c.notifications.DeleteOlderThan(ctx, now.AddDate(0, 0, -config.NotificationRetentionDays))
	if err != nil {
		return fmt.Errorf("cleanup notifications: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"deleted": deleted}).Info("Cleaned up old notifications")

	deleted, err = c.forecasts.DeleteOlderThan(ctx, now.AddDate(0, 0, -config.ForecastRetentionDays))
	if err != nil {
		return fmt.Errorf("cleanup forecasts: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"deleted": deleted}).Info("Cleaned up stale forecasts")

	return nil
}

// GetDataStats reports row counts for the main tables, used by the health
// endpoint.
func (c *CleanupService) GetDataStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64)

	products, err := c.products.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	stats["products"] = products

	notifications, err := c.notifications.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	stats["notifications"] = notifications

	forecasts, err := c.forecasts.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count forecasts: %w", err)
	}
	stats["forecasts"] = forecasts

	return stats, nil
}
