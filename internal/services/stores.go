package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

// ProductStore is the persistence surface the services need for products and
// price history. *database.ProductRepository satisfies it.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByURL(ctx context.Context, url string) (*models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	AppendPricePoints(ctx context.Context, productID string, points []models.PricePoint) error
	CompareAndSwapPrice(ctx context.Context, id string, expected, newPrice decimal.Decimal, inStock bool, checkedAt time.Time) (bool, error)
	Refresh(ctx context.Context, id string, inStock bool, checkedAt time.Time) error
	Touch(ctx context.Context, id string, checkedAt time.Time) error
	GetPriceHistory(ctx context.Context, productID string, since *time.Time) ([]models.PricePoint, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.Product, error)
	ListIDsWithHistoryAtLeast(ctx context.Context, minPoints int) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// SubscriptionStore is the persistence surface for user tracking records.
// *database.SubscriptionRepository satisfies it.
type SubscriptionStore interface {
	Get(ctx context.Context, userID, productID string) (*models.Subscription, error)
	Insert(ctx context.Context, s *models.Subscription) error
	UpdatePreferences(ctx context.Context, userID, productID string, prefs models.TrackingPreferences) (int64, error)
	Delete(ctx context.Context, userID, productID string) (int64, error)
	ListTrackedProducts(ctx context.Context, userID string) ([]models.TrackedProduct, error)
	ListPriceDropTargets(ctx context.Context, productID string, newPrice decimal.Decimal) ([]models.Subscription, error)
	ListAvailabilityWatchers(ctx context.Context, productID string) ([]models.Subscription, error)
}

// NotificationStore is the persistence surface for notifications.
// *database.NotificationRepository satisfies it.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, limit int, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (int64, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) (int64, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ForecastStore persists generated forecasts. *database.ForecastRepository
// satisfies it.
type ForecastStore interface {
	Upsert(ctx context.Context, productID, model, trend string, payload []byte, generatedAt time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Cache is the key/value surface used for derived data.
// *database.RedisClient satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}
