package database

import (
	"context"
	"fmt"
	"time"
)

// ForecastRepository stores generated forecasts. Forecasts are derived data:
// they can be regenerated from price history at any time, so rows here are a
// cache for the API layer, not a source of truth.
type ForecastRepository struct {
	pool DatabasePool
}

// NewForecastRepository creates a new forecast repository.
func NewForecastRepository(pool DatabasePool) *ForecastRepository {
	return &ForecastRepository{pool: pool}
}

// Upsert stores or replaces the forecast for a product.
func (r *ForecastRepository) Upsert(ctx context.Context, productID, model, trend string, payload []byte, generatedAt time.Time) error {
	query := `
		INSERT INTO forecasts (product_id, model, trend, payload, generated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id)
		DO UPDATE SET model = EXCLUDED.model, trend = EXCLUDED.trend,
			payload = EXCLUDED.payload, generated_at = EXCLUDED.generated_at
	`

	if _, err := r.pool.Exec(ctx, query, productID, model, trend, payload, generatedAt); err != nil {
		return fmt.Errorf("failed to upsert forecast: %w", err)
	}
	return nil
}

// DeleteOlderThan removes forecasts generated before cutoff and returns the
// number deleted.
func (r *ForecastRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM forecasts WHERE generated_at < $1`

	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old forecasts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored forecasts.
func (r *ForecastRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM forecasts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count forecasts: %w", err)
	}
	return count, nil
}
