package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricehawk/pricehawk/internal/models"
)

func TestProductRepositoryGetByID(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	checked := time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT id, name, url").
		WithArgs("prod-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "url", "image_url", "description", "current_price",
			"original_price", "currency", "source", "category", "in_stock",
			"created_at", "last_checked",
		}).AddRow(
			"prod-1", "iPhone 16 Pro", "https://example.com/iphone", "", "",
			decimal.NewFromInt(999), decimal.NewFromInt(1099), "USD", "amazon",
			"electronics", true, created, checked,
		))

	p, err := repo.GetByID(context.Background(), "prod-1")
	assert.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "iPhone 16 Pro", p.Name)
	assert.Equal(t, "amazon", p.Source)
	assert.True(t, p.CurrentPrice.Equal(decimal.NewFromInt(999)))
	assert.True(t, p.InStock)
	assert.Equal(t, checked, p.LastChecked)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestProductRepositoryGetByIDMissing(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)

	mockPool.ExpectQuery("SELECT id, name, url").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestProductRepositoryGetByURLMissing(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)

	mockPool.ExpectQuery("SELECT id, name, url").
		WithArgs("https://example.com/nope").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByURL(context.Background(), "https://example.com/nope")
	assert.NoError(t, err)
	assert.Nil(t, p)
}

func TestCompareAndSwapPriceSwapped(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expected := decimal.NewFromInt(1000)
	newPrice := decimal.NewFromInt(950)

	mockPool.ExpectExec("UPDATE products").
		WithArgs("prod-1", expected, newPrice, true, checked).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	swapped, err := repo.CompareAndSwapPrice(context.Background(), "prod-1", expected, newPrice, true, checked)
	assert.NoError(t, err)
	assert.True(t, swapped)

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCompareAndSwapPriceLostRace(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expected := decimal.NewFromInt(1000)
	newPrice := decimal.NewFromInt(950)

	// Another refresh already moved current_price, so the guard matches
	// nothing.
	mockPool.ExpectExec("UPDATE products").
		WithArgs("prod-1", expected, newPrice, true, checked).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	swapped, err := repo.CompareAndSwapPrice(context.Background(), "prod-1", expected, newPrice, true, checked)
	assert.NoError(t, err)
	assert.False(t, swapped)
}

func TestAppendPricePoints(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)
	first := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	mockPool.ExpectExec("INSERT INTO price_history").
		WithArgs("prod-1", decimal.NewFromInt(1000), first).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO price_history").
		WithArgs("prod-1", decimal.NewFromInt(950), second).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.AppendPricePoints(context.Background(), "prod-1", []models.PricePoint{
		{Price: decimal.NewFromInt(1000), Timestamp: first},
		{Price: decimal.NewFromInt(950), Timestamp: second},
	})
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetPriceHistory(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)
	first := time.Date(2026, 2, 26, 12, 0, 0, 0, time.UTC)
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT price, recorded_at FROM price_history").
		WithArgs("prod-1", &since).
		WillReturnRows(pgxmock.NewRows([]string{"price", "recorded_at"}).
			AddRow(decimal.NewFromInt(1000), first).
			AddRow(decimal.NewFromInt(950), first.Add(24*time.Hour)))

	points, err := repo.GetPriceHistory(context.Background(), "prod-1", &since)
	assert.NoError(t, err)
	require.Len(t, points, 2)
	assert.True(t, points[0].Price.Equal(decimal.NewFromInt(1000)))
	assert.True(t, points[1].Timestamp.After(points[0].Timestamp))
}

func TestListStale(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)
	cutoff := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mockPool.ExpectQuery("SELECT id, name, url").
		WithArgs(cutoff, 100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "url", "image_url", "description", "current_price",
			"original_price", "currency", "source", "category", "in_stock",
			"created_at", "last_checked",
		}).AddRow(
			"prod-1", "Old Product", "https://example.com/old", "", "",
			decimal.NewFromInt(100), decimal.NewFromInt(100), "USD", "catalog",
			"", true, created, created,
		))

	products, err := repo.ListStale(context.Background(), cutoff, 100)
	assert.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "prod-1", products[0].ID)
}

func TestListIDsWithHistoryAtLeast(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)

	mockPool.ExpectQuery("SELECT product_id FROM price_history").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"product_id"}).
			AddRow("prod-1").
			AddRow("prod-2"))

	ids, err := repo.ListIDsWithHistoryAtLeast(context.Background(), 10)
	assert.NoError(t, err)
	assert.Equal(t, []string{"prod-1", "prod-2"}, ids)
}

func TestProductRepositoryCount(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	repo := NewProductRepository(mockPool)

	mockPool.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(7), count)
}
