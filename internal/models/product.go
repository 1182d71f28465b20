package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a tracked marketplace listing. The row is owned by the
// store and mutated only through the tracking service.
type Product struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	URL           string          `json:"url" db:"url"`
	ImageURL      string          `json:"image_url,omitempty" db:"image_url"`
	Description   string          `json:"description,omitempty" db:"description"`
	CurrentPrice  decimal.Decimal `json:"current_price" db:"current_price"`
	OriginalPrice decimal.Decimal `json:"original_price" db:"original_price"`
	Currency      string          `json:"currency" db:"currency"`
	Source        string          `json:"source" db:"source"`
	Category      string          `json:"category,omitempty" db:"category"`
	InStock       bool            `json:"in_stock" db:"in_stock"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	LastChecked   time.Time       `json:"last_checked" db:"last_checked"`
}

// PricePoint is one observation in a product's price history. History is
// append-only and sorted ascending by timestamp; the newest point always
// matches the product's current price.
type PricePoint struct {
	Price     decimal.Decimal `json:"price" db:"price"`
	Timestamp time.Time       `json:"date" db:"recorded_at"`
}

// TrackRequest carries the product snapshot and subscription preferences
// supplied when a user starts (or refreshes) tracking.
type TrackRequest struct {
	Name                 string           `json:"name" binding:"required"`
	URL                  string           `json:"url" binding:"required"`
	ImageURL             string           `json:"image_url"`
	Description          string           `json:"description"`
	CurrentPrice         decimal.Decimal  `json:"current_price" binding:"required"`
	OriginalPrice        *decimal.Decimal `json:"original_price"`
	Currency             string           `json:"currency"`
	Source               string           `json:"source"`
	Category             string           `json:"category"`
	InStock              *bool            `json:"in_stock"`
	TargetPrice          *decimal.Decimal `json:"target_price"`
	NotifyOnPriceDrop    *bool            `json:"notify_on_price_drop"`
	NotifyOnAvailability *bool            `json:"notify_on_availability"`
}

// TrackResult reports the outcome of a TrackProduct call.
type TrackResult struct {
	ProductID           string `json:"product_id"`
	ProductCreated      bool   `json:"product_created"`
	SubscriptionCreated bool   `json:"subscription_created"`
}

// PriceUpdateResult reports the outcome of an UpdatePrice call. Drafts are not
// yet persisted; the orchestration layer persists and dispatches them.
type PriceUpdateResult struct {
	PriceChanged bool                `json:"price_changed"`
	Drafts       []NotificationDraft `json:"notifications"`
}
