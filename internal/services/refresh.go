package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pricehawk/pricehawk/internal/dispatch"
	"github.com/pricehawk/pricehawk/internal/fetch"
	"github.com/pricehawk/pricehawk/internal/models"
)

// FetcherResolver resolves a source name to its fetcher. *fetch.Registry
// satisfies it.
type FetcherResolver interface {
	Get(source string) (fetch.Fetcher, error)
}

// RefreshConfig tunes the periodic refresh and forecast jobs.
type RefreshConfig struct {
	Interval          time.Duration
	StaleAfter        time.Duration
	BatchSize         int
	ForecastMinPoints int
	ForecastDaysAhead int
}

// RefreshService runs the periodic price refresh cycle: pick stale products,
// fetch their current state, push it through the tracking service and turn
// the resulting drafts into persisted, dispatched notifications. One item
// failing never aborts the cycle; the product is still marked checked so it
// does not wedge the stale queue.
type RefreshService struct {
	products      ProductStore
	forecasts     ForecastStore
	tracking      *TrackingService
	notifications *NotificationService
	forecasting   *ForecastService
	resolver      FetcherResolver
	dispatcher    dispatch.Dispatcher
	logger        *logrus.Logger
	titler        cases.Caser

	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewRefreshService(
	products ProductStore,
	forecasts ForecastStore,
	tracking *TrackingService,
	notifications *NotificationService,
	forecasting *ForecastService,
	resolver FetcherResolver,
	dispatcher dispatch.Dispatcher,
	logger *logrus.Logger,
) *RefreshService {
	if logger == nil {
		logger = logrus.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshService{
		products:      products,
		forecasts:     forecasts,
		tracking:      tracking,
		notifications: notifications,
		forecasting:   forecasting,
		resolver:      resolver,
		dispatcher:    dispatcher,
		logger:        logger,
		titler:        cases.Title(language.English),
		ctx:           ctx,
		cancel:        cancel,
		now:           time.Now,
	}
}

// Start launches the periodic refresh loop. An initial cycle runs
// immediately, then one per interval until Stop is called.
func (s *RefreshService) Start(config RefreshConfig) {
	s.logger.WithFields(logrus.Fields{
		"interval":    config.Interval,
		"stale_after": config.StaleAfter,
		"batch_size":  config.BatchSize,
	}).Info("Starting refresh service")

	go func() {
		if err := s.RunPriceRefresh(s.ctx, config); err != nil {
			s.logger.Errorf("Initial price refresh failed: %v", err)
		}
	}()

	ticker := time.NewTicker(config.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.RunPriceRefresh(s.ctx, config); err != nil {
					s.logger.Errorf("Price refresh failed: %v", err)
				}
				if err := s.RunForecastGeneration(s.ctx, config); err != nil {
					s.logger.Errorf("Forecast generation failed: %v", err)
				}
			}
		}
	}()
}

// Stop halts the refresh loop.
func (s *RefreshService) Stop() {
	s.logger.Info("Stopping refresh service")
	s.cancel()
}

// RunPriceRefresh executes one refresh cycle over the stale batch.
func (s *RefreshService) RunPriceRefresh(ctx context.Context, config RefreshConfig) error {
	cutoff := s.now().Add(-config.StaleAfter)
	stale, err := s.products.ListStale(ctx, cutoff, config.BatchSize)
	if err != nil {
		return fmt.Errorf("list stale products: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"count": len(stale)}).Info("Refreshing stale products")

	for i := range stale {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.refreshOne(ctx, &stale[i])
	}

	s.logger.Info("Price refresh cycle completed")
	return nil
}

// refreshOne refreshes a single product. Fetch failures advance last_checked
// and move on; the next cycle retries.
func (s *RefreshService) refreshOne(ctx context.Context, product *models.Product) {
	log := s.logger.WithFields(logrus.Fields{"product_id": product.ID, "source": product.Source})

	fetcher, err := s.resolver.Get(product.Source)
	if err != nil {
		log.Warnf("No fetcher available: %v", err)
		s.touch(ctx, product.ID)
		return
	}

	snapshot, err := fetcher.FetchProduct(ctx, product.URL)
	if err != nil {
		log.Errorf("Failed to fetch product: %v", err)
		s.touch(ctx, product.ID)
		return
	}

	result, err := s.tracking.UpdatePrice(ctx, product.ID, snapshot.Price, snapshot.InStock)
	if err != nil {
		log.Errorf("Failed to apply price update: %v", err)
		return
	}

	for _, draft := range result.Drafts {
		s.deliverDraft(ctx, product, draft)
	}
}

// deliverDraft persists one notification draft and attempts delivery.
// Delivery failure is logged and swallowed; the stored notification is the
// durable record.
func (s *RefreshService) deliverDraft(ctx context.Context, product *models.Product, draft models.NotificationDraft) {
	draft.ProductName = &product.Name
	draft.URL = &product.URL
	if product.ImageURL != "" {
		draft.ImageURL = &product.ImageURL
	}

	if _, err := s.notifications.CreateNotification(ctx, draft); err != nil {
		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"user_id":    draft.UserID,
		}).Errorf("Failed to persist notification: %v", err)
		return
	}

	subject := "PriceHawk Alert: " + s.titler.String(strings.ReplaceAll(draft.Type, "_", " "))
	delivered, err := s.dispatcher.Send(ctx, draft.UserID, subject, s.renderBody(product, draft))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"user_id":    draft.UserID,
		}).Warnf("Notification delivery failed: %v", err)
		return
	}
	if delivered {
		s.logger.WithFields(logrus.Fields{
			"product_id": product.ID,
			"user_id":    draft.UserID,
			"type":       draft.Type,
		}).Info("Notification delivered")
	}
}

func (s *RefreshService) renderBody(product *models.Product, draft models.NotificationDraft) string {
	switch draft.Type {
	case models.NotificationTypePriceDrop:
		if draft.OldPrice != nil && draft.NewPrice != nil {
			return fmt.Sprintf(
				"Good news! The price of %s has dropped.\n\nOld price: $%s\nNew price: $%s\n\nView the product: %s",
				product.Name, draft.OldPrice.String(), draft.NewPrice.String(), product.URL,
			)
		}
	case models.NotificationTypeBackInStock:
		return fmt.Sprintf(
			"Good news! %s is back in stock.\n\nCurrent price: $%s\n\nView the product: %s",
			product.Name, product.CurrentPrice.String(), product.URL,
		)
	}
	return draft.Message
}

func (s *RefreshService) touch(ctx context.Context, productID string) {
	if err := s.products.Touch(ctx, productID, s.now()); err != nil {
		s.logger.WithFields(logrus.Fields{"product_id": productID}).
			Errorf("Failed to advance last_checked: %v", err)
	}
}

// RunForecastGeneration regenerates and persists forecasts for every product
// with enough history to support a model tier above the demo fallback.
func (s *RefreshService) RunForecastGeneration(ctx context.Context, config RefreshConfig) error {
	ids, err := s.products.ListIDsWithHistoryAtLeast(ctx, config.ForecastMinPoints)
	if err != nil {
		return fmt.Errorf("list forecastable products: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"count": len(ids)}).Info("Generating forecasts")

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		forecast := s.forecasting.ForecastPrice(ctx, id, config.ForecastDaysAhead)
		if forecast == nil || forecast.Status != "success" {
			continue
		}

		payload, err := json.Marshal(forecast)
		if err != nil {
			s.logger.WithFields(logrus.Fields{"product_id": id}).
				Errorf("Failed to encode forecast: %v", err)
			continue
		}
		if err := s.forecasts.Upsert(ctx, id, forecast.Model, forecast.Trend, payload, forecast.GeneratedAt); err != nil {
			s.logger.WithFields(logrus.Fields{"product_id": id}).
				Errorf("Failed to store forecast: %v", err)
		}
	}

	s.logger.Info("Forecast generation completed")
	return nil
}
