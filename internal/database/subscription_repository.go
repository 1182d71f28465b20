package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

// SubscriptionRepository handles database operations for the user_tracking
// collection. Each (user_id, product_id) pair is unique.
type SubscriptionRepository struct {
	pool DatabasePool
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(pool DatabasePool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, user_id, product_id, target_price,
		notify_on_price_drop, notify_on_availability, created_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	var target decimal.NullDecimal
	err := row.Scan(
		&s.ID, &s.UserID, &s.ProductID, &target,
		&s.NotifyOnPriceDrop, &s.NotifyOnAvailability, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if target.Valid {
		s.TargetPrice = &target.Decimal
	}
	return &s, nil
}

// Get returns the subscription for the pair, or (nil, nil) if absent.
func (r *SubscriptionRepository) Get(ctx context.Context, userID, productID string) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM user_tracking WHERE user_id = $1 AND product_id = $2`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, userID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return s, nil
}

// Insert stores a new subscription row.
func (r *SubscriptionRepository) Insert(ctx context.Context, s *models.Subscription) error {
	query := `
		INSERT INTO user_tracking (id, user_id, product_id, target_price,
			notify_on_price_drop, notify_on_availability, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var target decimal.NullDecimal
	if s.TargetPrice != nil {
		target = decimal.NullDecimal{Decimal: *s.TargetPrice, Valid: true}
	}

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.UserID, s.ProductID, target,
		s.NotifyOnPriceDrop, s.NotifyOnAvailability, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// UpdatePreferences applies the non-nil fields of the patch and returns the
// number of rows matched.
func (r *SubscriptionRepository) UpdatePreferences(ctx context.Context, userID, productID string, prefs models.TrackingPreferences) (int64, error) {
	set := ""
	args := []interface{}{userID, productID}
	next := 3

	appendSet := func(column string, value interface{}) {
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", column, next)
		args = append(args, value)
		next++
	}

	if prefs.TargetPrice != nil {
		appendSet("target_price", *prefs.TargetPrice)
	}
	if prefs.NotifyOnPriceDrop != nil {
		appendSet("notify_on_price_drop", *prefs.NotifyOnPriceDrop)
	}
	if prefs.NotifyOnAvailability != nil {
		appendSet("notify_on_availability", *prefs.NotifyOnAvailability)
	}
	if set == "" {
		return 0, nil
	}

	query := fmt.Sprintf("UPDATE user_tracking SET %s WHERE user_id = $1 AND product_id = $2", set)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update subscription preferences: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes the pair's subscription and returns the number of rows
// deleted.
func (r *SubscriptionRepository) Delete(ctx context.Context, userID, productID string) (int64, error) {
	query := `DELETE FROM user_tracking WHERE user_id = $1 AND product_id = $2`

	tag, err := r.pool.Exec(ctx, query, userID, productID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete subscription: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListTrackedProducts joins a user's subscriptions with product data.
func (r *SubscriptionRepository) ListTrackedProducts(ctx context.Context, userID string) ([]models.TrackedProduct, error) {
	query := `
		SELECT p.id, p.name, p.url, p.image_url, p.current_price, p.original_price,
			p.currency, p.source, p.in_stock, p.last_checked,
			t.target_price, t.notify_on_price_drop, t.notify_on_availability, t.created_at
		FROM user_tracking t
		JOIN products p ON p.id = t.product_id
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked products: %w", err)
	}
	defer rows.Close()

	var tracked []models.TrackedProduct
	for rows.Next() {
		var tp models.TrackedProduct
		var target decimal.NullDecimal
		if err := rows.Scan(
			&tp.ProductID, &tp.Name, &tp.URL, &tp.ImageURL, &tp.CurrentPrice,
			&tp.OriginalPrice, &tp.Currency, &tp.Source, &tp.InStock, &tp.LastChecked,
			&target, &tp.NotifyOnPriceDrop, &tp.NotifyOnAvailability, &tp.TrackingSince,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tracked product: %w", err)
		}
		if target.Valid {
			tp.TargetPrice = &target.Decimal
		}
		tracked = append(tracked, tp)
	}
	return tracked, rows.Err()
}

// ListPriceDropTargets returns subscriptions on the product that opted into
// price-drop alerts and whose target is unset or at/above the new price.
// The rule deliberately fires for any drop below the target, matching the
// original eligibility filter.
func (r *SubscriptionRepository) ListPriceDropTargets(ctx context.Context, productID string, newPrice decimal.Decimal) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + ` FROM user_tracking
		WHERE product_id = $1
		  AND notify_on_price_drop = true
		  AND (target_price IS NULL OR target_price >= $2)
	`

	return r.querySubscriptions(ctx, query, productID, newPrice)
}

// ListAvailabilityWatchers returns subscriptions on the product that opted
// into back-in-stock alerts.
func (r *SubscriptionRepository) ListAvailabilityWatchers(ctx context.Context, productID string) ([]models.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + ` FROM user_tracking
		WHERE product_id = $1 AND notify_on_availability = true
	`

	return r.querySubscriptions(ctx, query, productID)
}

func (r *SubscriptionRepository) querySubscriptions(ctx context.Context, query string, args ...interface{}) ([]models.Subscription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		var target decimal.NullDecimal
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.ProductID, &target,
			&s.NotifyOnPriceDrop, &s.NotifyOnAvailability, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		if target.Valid {
			s.TargetPrice = &target.Decimal
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
