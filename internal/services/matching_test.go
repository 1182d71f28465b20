package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricehawk/pricehawk/internal/models"
)

func TestTokenSimilarity(t *testing.T) {
	sim := TokenSimilarity{}

	assert.InDelta(t, 1.0, sim.Score("iPhone 15 Pro", "iphone 15 pro"), 1e-9)
	assert.Equal(t, 0.0, sim.Score("iPhone 15 Pro", "Samsung Galaxy Buds"))
	assert.Equal(t, 0.0, sim.Score("", "anything"))

	partial := sim.Score("iPhone 15 Pro - Amazon", "iPhone 15 Pro - Flipkart")
	assert.Greater(t, partial, 0.7)
	assert.Less(t, partial, 1.0)

	// Symmetric.
	assert.Equal(t, sim.Score("a b c", "a b"), sim.Score("a b", "a b c"))
}

func TestClusterProductsGreedySinglePass(t *testing.T) {
	svc := NewMatchingService(TokenSimilarity{}, 0.75, nil)

	listings := []models.Listing{
		{Title: "iPhone 15 Pro 128GB", Price: 999, Source: "amazon"},
		{Title: "Samsung Galaxy S24", Price: 899, Source: "amazon"},
		{Title: "iPhone 15 Pro 128GB", Price: 979, Source: "flipkart"},
		{Title: "Samsung Galaxy S24", Price: 879, Source: "flipkart"},
	}

	clusters := svc.ClusterProducts(listings)
	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0], 2)
	assert.Len(t, clusters[1], 2)
	// Input order preserved within clusters.
	assert.Equal(t, "amazon", clusters[0][0].Source)
	assert.Equal(t, "flipkart", clusters[0][1].Source)
}

func TestClusterProductsEmpty(t *testing.T) {
	svc := NewMatchingService(TokenSimilarity{}, 0.75, nil)
	assert.Nil(t, svc.ClusterProducts(nil))
}

func TestLexicalFallbackGroupsByTitlePrefix(t *testing.T) {
	svc := NewMatchingService(nil, 0.75, nil)

	listings := []models.Listing{
		{Title: "iPhone 15 Pro - Amazon", Price: 999, Source: "amazon"},
		{Title: "iPhone 15 Pro - Flipkart", Price: 979, Source: "flipkart"},
	}

	clusters := svc.ClusterProducts(listings)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 2)

	deals := svc.FindBestDeals(listings)
	require.Len(t, deals, 1)
	assert.Equal(t, 979.0, deals[0].Price)
	assert.Equal(t, "flipkart", deals[0].Source)
}

func TestLexicalKey(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"iPhone 15 Pro - Amazon", "iphone 15 pro"},
		{"Standalone Widget", "standalone"},
		{"", "unknown"},
		{"- leading separator", "unknown"},
		{"  ", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lexicalKey(tt.title), "title %q", tt.title)
	}
}

func TestFindBestDealsMinPriceFirstOccurrenceTie(t *testing.T) {
	svc := NewMatchingService(TokenSimilarity{}, 0.75, nil)

	listings := []models.Listing{
		{Title: "USB-C Cable 2m", Price: 12, Source: "amazon"},
		{Title: "USB-C Cable 2m", Price: 9, Source: "flipkart"},
		{Title: "USB-C Cable 2m", Price: 9, Source: "ebay"},
	}

	deals := svc.FindBestDeals(listings)
	require.Len(t, deals, 1)
	assert.Equal(t, 9.0, deals[0].Price)
	assert.Equal(t, "flipkart", deals[0].Source, "ties keep the earliest listing")
}

func TestFindBestDealsIdempotentOnOwnOutput(t *testing.T) {
	svc := NewMatchingService(TokenSimilarity{}, 0.75, nil)

	listings := []models.Listing{
		{Title: "iPhone 15 Pro 128GB", Price: 999, Source: "amazon"},
		{Title: "iPhone 15 Pro 128GB", Price: 979, Source: "flipkart"},
		{Title: "Samsung Galaxy S24 Ultra", Price: 1299, Source: "amazon"},
		{Title: "Samsung Galaxy S24 Ultra", Price: 1249, Source: "flipkart"},
	}

	deals := svc.FindBestDeals(listings)
	require.Len(t, deals, 2)

	again := svc.FindBestDeals(deals)
	assert.Equal(t, deals, again)
}

func TestGetClusterSummary(t *testing.T) {
	svc := NewMatchingService(TokenSimilarity{}, 0.75, nil)

	cluster := []models.Listing{
		{Title: "Phone", Price: 100, Rating: 4, Source: "amazon"},
		{Title: "Phone", Price: 80, Rating: 0, Source: "flipkart"},
		{Title: "Phone", Price: 120, Rating: 5, Source: "amazon"},
	}

	summary := svc.GetClusterSummary(cluster)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, 80.0, summary.MinPrice)
	assert.Equal(t, 120.0, summary.MaxPrice)
	assert.Equal(t, 100.0, summary.AvgPrice)
	// Unrated listings are ignored in the mean rating.
	assert.Equal(t, 4.5, summary.AvgRating)
	assert.Equal(t, []string{"amazon", "flipkart"}, summary.Sources)
	require.NotNil(t, summary.BestPrice)
	assert.Equal(t, 80.0, summary.BestPrice.Price)
}

func TestGetClusterSummaryEmpty(t *testing.T) {
	svc := NewMatchingService(TokenSimilarity{}, 0.75, nil)

	summary := svc.GetClusterSummary(nil)
	assert.Equal(t, 0, summary.Count)
	assert.Empty(t, summary.Sources)
	assert.Nil(t, summary.BestPrice)
}
