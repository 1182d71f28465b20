package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription records a user's standing interest in a product's price.
// The (user_id, product_id) pair is unique.
type Subscription struct {
	ID                   string           `json:"id" db:"id"`
	UserID               string           `json:"user_id" db:"user_id"`
	ProductID            string           `json:"product_id" db:"product_id"`
	TargetPrice          *decimal.Decimal `json:"target_price,omitempty" db:"target_price"`
	NotifyOnPriceDrop    bool             `json:"notify_on_price_drop" db:"notify_on_price_drop"`
	NotifyOnAvailability bool             `json:"notify_on_availability" db:"notify_on_availability"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
}

// TrackingPreferences is the patch shape accepted by
// UpdateTrackingPreferences. Only non-nil fields are applied.
type TrackingPreferences struct {
	TargetPrice          *decimal.Decimal `json:"target_price"`
	NotifyOnPriceDrop    *bool            `json:"notify_on_price_drop"`
	NotifyOnAvailability *bool            `json:"notify_on_availability"`
}

// Empty reports whether the patch carries no recognized preference field.
func (p TrackingPreferences) Empty() bool {
	return p.TargetPrice == nil && p.NotifyOnPriceDrop == nil && p.NotifyOnAvailability == nil
}

// TrackedProduct combines product data with one user's tracking preferences,
// as returned by GetTrackedProducts.
type TrackedProduct struct {
	ProductID            string           `json:"product_id"`
	Name                 string           `json:"name"`
	URL                  string           `json:"url"`
	ImageURL             string           `json:"image_url,omitempty"`
	CurrentPrice         decimal.Decimal  `json:"current_price"`
	OriginalPrice        decimal.Decimal  `json:"original_price"`
	Currency             string           `json:"currency"`
	Source               string           `json:"source"`
	InStock              bool             `json:"in_stock"`
	LastChecked          time.Time        `json:"last_checked"`
	TargetPrice          *decimal.Decimal `json:"target_price,omitempty"`
	NotifyOnPriceDrop    bool             `json:"notify_on_price_drop"`
	NotifyOnAvailability bool             `json:"notify_on_availability"`
	TrackingSince        time.Time        `json:"tracking_since"`
}
