package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notification types.
const (
	NotificationTypePriceDrop   = "price_drop"
	NotificationTypeBackInStock = "back_in_stock"
	NotificationTypeTest        = "test"
)

// Notification is a persisted user notification. Records are immutable except
// for the read flag and deletion.
type Notification struct {
	ID          string           `json:"id" db:"id"`
	UserID      string           `json:"user_id" db:"user_id"`
	Type        string           `json:"type" db:"type"`
	Message     string           `json:"message" db:"message"`
	ProductID   *string          `json:"product_id,omitempty" db:"product_id"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty" db:"old_price"`
	NewPrice    *decimal.Decimal `json:"new_price,omitempty" db:"new_price"`
	URL         *string          `json:"url,omitempty" db:"url"`
	ImageURL    *string          `json:"image_url,omitempty" db:"image_url"`
	ProductName *string          `json:"product_name,omitempty" db:"product_name"`
	Read        bool             `json:"read" db:"read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// NotificationDraft is an unsaved notification produced by the tracking
// service when a price update matches a subscription's criteria.
type NotificationDraft struct {
	UserID      string           `json:"user_id"`
	Type        string           `json:"type"`
	Message     string           `json:"message"`
	ProductID   *string          `json:"product_id,omitempty"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice    *decimal.Decimal `json:"new_price,omitempty"`
	URL         *string          `json:"url,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
	ProductName *string          `json:"product_name,omitempty"`
}
