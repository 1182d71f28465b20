package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

// ProductRepository handles database operations for products and their
// append-only price history.
type ProductRepository struct {
	pool DatabasePool
}

// NewProductRepository creates a new product repository.
func NewProductRepository(pool DatabasePool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

const productColumns = `id, name, url, image_url, description, current_price, original_price,
		currency, source, category, in_stock, created_at, last_checked`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Description,
		&p.CurrentPrice, &p.OriginalPrice, &p.Currency, &p.Source,
		&p.Category, &p.InStock, &p.CreatedAt, &p.LastChecked,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID returns the product with the given id, or (nil, nil) if absent.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}
	return p, nil
}

// GetByURL returns the product with the given source URL, or (nil, nil) if
// absent. The URL is the dedup key for products.
func (r *ProductRepository) GetByURL(ctx context.Context, url string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE url = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by url: %w", err)
	}
	return p, nil
}

// Insert stores a new product row.
func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, name, url, image_url, description, current_price, original_price,
			currency, source, category, in_stock, created_at, last_checked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.URL, p.ImageURL, p.Description,
		p.CurrentPrice, p.OriginalPrice, p.Currency, p.Source,
		p.Category, p.InStock, p.CreatedAt, p.LastChecked,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// AppendPricePoints appends observations to the product's price history.
func (r *ProductRepository) AppendPricePoints(ctx context.Context, productID string, points []models.PricePoint) error {
	query := `INSERT INTO price_history (product_id, price, recorded_at) VALUES ($1, $2, $3)`

	for _, pt := range points {
		if _, err := r.pool.Exec(ctx, query, productID, pt.Price, pt.Timestamp); err != nil {
			return fmt.Errorf("failed to append price point: %w", err)
		}
	}
	return nil
}

// CompareAndSwapPrice updates the product snapshot only when current_price
// still matches the expected value. Two concurrent refreshes of the same
// product therefore cannot both record the same price change.
func (r *ProductRepository) CompareAndSwapPrice(ctx context.Context, id string, expected, newPrice decimal.Decimal, inStock bool, checkedAt time.Time) (bool, error) {
	query := `
		UPDATE products
		SET current_price = $3, in_stock = $4, last_checked = $5
		WHERE id = $1 AND current_price = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, expected, newPrice, inStock, checkedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update product price: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Refresh updates stock state and the last_checked timestamp without touching
// the price.
func (r *ProductRepository) Refresh(ctx context.Context, id string, inStock bool, checkedAt time.Time) error {
	query := `UPDATE products SET in_stock = $2, last_checked = $3 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, inStock, checkedAt); err != nil {
		return fmt.Errorf("failed to refresh product: %w", err)
	}
	return nil
}

// Touch advances last_checked only. Used when a fetch fails, so the retry
// cadence is preserved.
func (r *ProductRepository) Touch(ctx context.Context, id string, checkedAt time.Time) error {
	query := `UPDATE products SET last_checked = $2 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id, checkedAt); err != nil {
		return fmt.Errorf("failed to touch product: %w", err)
	}
	return nil
}

// GetPriceHistory returns the product's history sorted ascending by
// timestamp, optionally limited to points recorded at or after since.
func (r *ProductRepository) GetPriceHistory(ctx context.Context, productID string, since *time.Time) ([]models.PricePoint, error) {
	query := `
		SELECT price, recorded_at FROM price_history
		WHERE product_id = $1 AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		ORDER BY recorded_at ASC
	`

	rows, err := r.pool.Query(ctx, query, productID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var points []models.PricePoint
	for rows.Next() {
		var pt models.PricePoint
		if err := rows.Scan(&pt.Price, &pt.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, pt)
	}
	return points, rows.Err()
}

// ListStale returns products whose last_checked is older than cutoff, oldest
// first, capped at limit.
func (r *ProductRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE last_checked < $1
		ORDER BY last_checked ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.URL, &p.ImageURL, &p.Description,
			&p.CurrentPrice, &p.OriginalPrice, &p.Currency, &p.Source,
			&p.Category, &p.InStock, &p.CreatedAt, &p.LastChecked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListIDsWithHistoryAtLeast returns ids of products that have accumulated at
// least minPoints history observations.
func (r *ProductRepository) ListIDsWithHistoryAtLeast(ctx context.Context, minPoints int) ([]string, error) {
	query := `
		SELECT product_id FROM price_history
		GROUP BY product_id
		HAVING COUNT(*) >= $1
	`

	rows, err := r.pool.Query(ctx, query, minPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to query products with history: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the total number of tracked products.
func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}
