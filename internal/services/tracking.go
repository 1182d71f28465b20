package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pricehawk/pricehawk/internal/models"
	"github.com/pricehawk/pricehawk/internal/utils"
)

// Multipliers for the synthetic warm-up trail seeded into a brand-new
// product's history, oldest first. They decay monotonically toward the
// current price so forecasting has a minimum sample from day one.
var warmupTrail = []struct {
	multiplier float64
	daysAgo    int
}{
	{1.15, 30},
	{1.10, 25},
	{1.08, 20},
	{1.05, 15},
	{1.02, 10},
	{1.00, 5},
}

// TrackingService owns the Product and Subscription lifecycle: it is the only
// component that appends to price history, and it turns price updates into
// notification drafts for the orchestration layer to persist and dispatch.
type TrackingService struct {
	products      ProductStore
	subscriptions SubscriptionStore
	logger        *logrus.Logger
	now           func() time.Time
}

// NewTrackingService creates a new tracking service.
func NewTrackingService(products ProductStore, subscriptions SubscriptionStore, logger *logrus.Logger) *TrackingService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TrackingService{
		products:      products,
		subscriptions: subscriptions,
		logger:        logger,
		now:           time.Now,
	}
}

// TrackProduct starts or refreshes tracking of a product for a user. The
// product is deduplicated by URL; on first sight it is created with a
// synthetic warm-up history. The user's subscription is then upserted: a new
// subscription with a target price at or above the current price is rejected,
// while an existing subscription merges only the supplied preference fields.
func (s *TrackingService) TrackProduct(ctx context.Context, userID string, req models.TrackRequest) (*models.TrackResult, error) {
	if userID == "" {
		return nil, utils.NewValidationError("user_id is required")
	}

	now := s.now()
	product, err := s.products.GetByURL(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("track product: %w", err)
	}

	created := false
	if product == nil {
		product, err = s.createProduct(ctx, req, now)
		if err != nil {
			return nil, fmt.Errorf("track product: %w", err)
		}
		created = true
	} else {
		inStock := product.InStock
		if req.InStock != nil {
			inStock = *req.InStock
		}
		ok, err := s.products.CompareAndSwapPrice(ctx, product.ID, product.CurrentPrice, req.CurrentPrice, inStock, now)
		if err != nil {
			return nil, fmt.Errorf("track product: %w", err)
		}
		if ok && !req.CurrentPrice.Equal(product.CurrentPrice) {
			point := models.PricePoint{Price: req.CurrentPrice, Timestamp: now}
			if err := s.products.AppendPricePoints(ctx, product.ID, []models.PricePoint{point}); err != nil {
				return nil, fmt.Errorf("track product: %w", err)
			}
		}
		product.CurrentPrice = req.CurrentPrice
	}

	sub, err := s.subscriptions.Get(ctx, userID, product.ID)
	if err != nil {
		return nil, fmt.Errorf("track product: %w", err)
	}

	if sub == nil {
		if req.TargetPrice != nil && req.TargetPrice.GreaterThanOrEqual(product.CurrentPrice) {
			return nil, utils.NewValidationErrorf(
				"target_price %s must be below the current price %s",
				req.TargetPrice.String(), product.CurrentPrice.String(),
			)
		}

		newSub := &models.Subscription{
			ID:                   uuid.NewString(),
			UserID:               userID,
			ProductID:            product.ID,
			TargetPrice:          req.TargetPrice,
			NotifyOnPriceDrop:    boolOrDefault(req.NotifyOnPriceDrop, true),
			NotifyOnAvailability: boolOrDefault(req.NotifyOnAvailability, true),
			CreatedAt:            now,
		}
		if err := s.subscriptions.Insert(ctx, newSub); err != nil {
			return nil, fmt.Errorf("track product: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"product_id": product.ID,
		}).Info("Started tracking product")

		return &models.TrackResult{ProductID: product.ID, ProductCreated: created, SubscriptionCreated: true}, nil
	}

	prefs := models.TrackingPreferences{
		TargetPrice:          req.TargetPrice,
		NotifyOnPriceDrop:    req.NotifyOnPriceDrop,
		NotifyOnAvailability: req.NotifyOnAvailability,
	}
	if !prefs.Empty() {
		if _, err := s.subscriptions.UpdatePreferences(ctx, userID, product.ID, prefs); err != nil {
			return nil, fmt.Errorf("track product: %w", err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": product.ID,
	}).Info("Updated tracking for product")

	return &models.TrackResult{ProductID: product.ID, ProductCreated: created, SubscriptionCreated: false}, nil
}

func (s *TrackingService) createProduct(ctx context.Context, req models.TrackRequest, now time.Time) (*models.Product, error) {
	originalPrice := req.CurrentPrice
	if req.OriginalPrice != nil {
		originalPrice = *req.OriginalPrice
	}

	product := &models.Product{
		ID:            uuid.NewString(),
		Name:          req.Name,
		URL:           req.URL,
		ImageURL:      req.ImageURL,
		Description:   req.Description,
		CurrentPrice:  req.CurrentPrice,
		OriginalPrice: originalPrice,
		Currency:      stringOrDefault(req.Currency, "USD"),
		Source:        stringOrDefault(req.Source, "unknown"),
		Category:      req.Category,
		InStock:       boolOrDefault(req.InStock, true),
		CreatedAt:     now,
		LastChecked:   now,
	}

	if err := s.products.Insert(ctx, product); err != nil {
		return nil, err
	}
	if err := s.products.AppendPricePoints(ctx, product.ID, seedPriceHistory(req.CurrentPrice, now)); err != nil {
		return nil, err
	}
	return product, nil
}

// seedPriceHistory builds the warm-up trail plus the current observation,
// sorted ascending by timestamp.
func seedPriceHistory(currentPrice decimal.Decimal, now time.Time) []models.PricePoint {
	points := make([]models.PricePoint, 0, len(warmupTrail)+1)
	for _, step := range warmupTrail {
		points = append(points, models.PricePoint{
			Price:     currentPrice.Mul(decimal.NewFromFloat(step.multiplier)).Round(2),
			Timestamp: now.AddDate(0, 0, -step.daysAgo),
		})
	}
	return append(points, models.PricePoint{Price: currentPrice, Timestamp: now})
}

// UntrackProduct removes the user's subscription. The product itself is kept:
// other users may still track it.
func (s *TrackingService) UntrackProduct(ctx context.Context, userID, productID string) error {
	deleted, err := s.subscriptions.Delete(ctx, userID, productID)
	if err != nil {
		return fmt.Errorf("untrack product: %w", err)
	}
	if deleted == 0 {
		return utils.NewNotFoundError("subscription", productID)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
	}).Info("Stopped tracking product")
	return nil
}

// GetTrackedProducts returns all products the user tracks, combined with the
// user's preferences.
func (s *TrackingService) GetTrackedProducts(ctx context.Context, userID string) ([]models.TrackedProduct, error) {
	tracked, err := s.subscriptions.ListTrackedProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get tracked products: %w", err)
	}
	return tracked, nil
}

// UpdatePrice records a price observation for a product. A changed price is
// appended to the history behind an optimistic check on current_price, so two
// concurrent refreshes cannot record the same change twice. The returned
// drafts are not persisted; the caller forwards them to the notification
// engine.
func (s *TrackingService) UpdatePrice(ctx context.Context, productID string, newPrice decimal.Decimal, inStock bool) (*models.PriceUpdateResult, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}
	if product == nil {
		return nil, utils.NewNotFoundError("product", productID)
	}

	now := s.now()
	oldPrice := product.CurrentPrice
	priceChanged := !newPrice.Equal(oldPrice)

	if priceChanged {
		swapped, err := s.products.CompareAndSwapPrice(ctx, productID, oldPrice, newPrice, inStock, now)
		if err != nil {
			return nil, fmt.Errorf("update price: %w", err)
		}
		if !swapped {
			// A concurrent refresh already applied this change. Do not append
			// a duplicate history point or re-emit drafts for it.
			return &models.PriceUpdateResult{PriceChanged: false}, nil
		}
		if err := s.products.AppendPricePoints(ctx, productID, []models.PricePoint{{Price: newPrice, Timestamp: now}}); err != nil {
			return nil, fmt.Errorf("update price: %w", err)
		}

		s.logger.WithFields(logrus.Fields{
			"product_id": productID,
			"old_price":  oldPrice.String(),
			"new_price":  newPrice.String(),
		}).Info("Updated product price")
	} else {
		if err := s.products.Refresh(ctx, productID, inStock, now); err != nil {
			return nil, fmt.Errorf("update price: %w", err)
		}
	}

	drafts, err := s.buildDrafts(ctx, product, newPrice, inStock, priceChanged)
	if err != nil {
		return nil, fmt.Errorf("update price: %w", err)
	}

	return &models.PriceUpdateResult{PriceChanged: priceChanged, Drafts: drafts}, nil
}

func (s *TrackingService) buildDrafts(ctx context.Context, product *models.Product, newPrice decimal.Decimal, inStock, priceChanged bool) ([]models.NotificationDraft, error) {
	var drafts []models.NotificationDraft
	oldPrice := product.CurrentPrice

	if priceChanged && newPrice.LessThan(oldPrice) {
		subs, err := s.subscriptions.ListPriceDropTargets(ctx, product.ID, newPrice)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			old, fresh := oldPrice, newPrice
			drafts = append(drafts, models.NotificationDraft{
				UserID:    sub.UserID,
				Type:      models.NotificationTypePriceDrop,
				Message:   fmt.Sprintf("Price dropped from %s to %s", oldPrice.String(), newPrice.String()),
				ProductID: &product.ID,
				OldPrice:  &old,
				NewPrice:  &fresh,
			})
		}
	}

	if inStock && !product.InStock {
		subs, err := s.subscriptions.ListAvailabilityWatchers(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			drafts = append(drafts, models.NotificationDraft{
				UserID:    sub.UserID,
				Type:      models.NotificationTypeBackInStock,
				Message:   fmt.Sprintf("Product is back in stock at %s", newPrice.String()),
				ProductID: &product.ID,
			})
		}
	}

	return drafts, nil
}

// GetPriceHistory returns the product's price history sorted ascending by
// timestamp, optionally windowed to the last N days.
func (s *TrackingService) GetPriceHistory(ctx context.Context, productID string, days int) ([]models.PricePoint, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get price history: %w", err)
	}
	if product == nil {
		return nil, utils.NewNotFoundError("product", productID)
	}

	var since *time.Time
	if days > 0 {
		cutoff := s.now().AddDate(0, 0, -days)
		since = &cutoff
	}

	history, err := s.products.GetPriceHistory(ctx, productID, since)
	if err != nil {
		return nil, fmt.Errorf("get price history: %w", err)
	}
	return history, nil
}

// UpdateTrackingPreferences patches the known preference fields of an
// existing subscription. A patch with no recognized field is rejected.
func (s *TrackingService) UpdateTrackingPreferences(ctx context.Context, userID, productID string, prefs models.TrackingPreferences) error {
	if prefs.Empty() {
		return utils.NewValidationError("no recognized preference fields provided")
	}

	matched, err := s.subscriptions.UpdatePreferences(ctx, userID, productID, prefs)
	if err != nil {
		return fmt.Errorf("update tracking preferences: %w", err)
	}
	if matched == 0 {
		return utils.NewNotFoundError("subscription", productID)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
	}).Info("Updated tracking preferences")
	return nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func stringOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
