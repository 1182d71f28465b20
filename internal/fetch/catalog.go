package fetch

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

// catalogEntry is one product in the simulated marketplace, with a price per
// storefront.
type catalogEntry struct {
	Name    string
	Prices  map[string]float64
	URLs    map[string]string
	Rating  float64
	Reviews int
}

var defaultCatalog = []catalogEntry{
	{
		Name:    "Apple iPhone 16 Pro 256GB Natural Titanium",
		Prices:  map[string]float64{"amazon": 1199.99, "flipkart": 1149.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0DGHXM2CX", "flipkart": "https://www.flipkart.com/apple-iphone-16-pro-256-gb/p/itm6c6d4c5b5c5e5"},
		Rating:  4.8,
		Reviews: 850,
	},
	{
		Name:    "iPhone 16 128GB Black",
		Prices:  map[string]float64{"amazon": 999.99, "flipkart": 979.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0DGHXM3RT", "flipkart": "https://www.flipkart.com/apple-iphone-16-128-gb/p/itm7d7e5d6f6d6f6"},
		Rating:  4.6,
		Reviews: 1200,
	},
	{
		Name:    "Apple iPhone 15 Pro 128GB Blue Titanium",
		Prices:  map[string]float64{"amazon": 899.99, "flipkart": 879.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0CHX1W1XY", "flipkart": "https://www.flipkart.com/apple-iphone-15-pro-128-gb/p/itm8e8f6e7g7e7g7"},
		Rating:  4.5,
		Reviews: 1250,
	},
	{
		Name:    "iPhone 15 256GB Pink",
		Prices:  map[string]float64{"amazon": 799.99, "flipkart": 789.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0CHX2W2YZ", "flipkart": "https://www.flipkart.com/apple-iphone-15-256-gb/p/itm9f9g7f8h8f8h8"},
		Rating:  4.3,
		Reviews: 890,
	},
	{
		Name:    "Apple iPhone 14 Pro 128GB Deep Purple",
		Prices:  map[string]float64{"amazon": 699.99, "flipkart": 679.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0BN72FYFG", "flipkart": "https://www.flipkart.com/apple-iphone-14-pro-128-gb/p/itma0a1h8a2i9a2i"},
		Rating:  4.6,
		Reviews: 2100,
	},
	{
		Name:    "Samsung Galaxy S24 Ultra 256GB Titanium Gray",
		Prices:  map[string]float64{"amazon": 1299.99, "flipkart": 1249.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0CMDM1PY2", "flipkart": "https://www.flipkart.com/samsung-galaxy-s24-ultra-256-gb/p/itmc2c3j0c4k1c4k"},
		Rating:  4.7,
		Reviews: 950,
	},
	{
		Name:    "Galaxy S23 128GB Phantom Black",
		Prices:  map[string]float64{"amazon": 799.99, "flipkart": 779.99},
		URLs:    map[string]string{"amazon": "https://www.amazon.com/dp/B0BLP4JQZ6", "flipkart": "https://www.flipkart.com/samsung-galaxy-s23-128-gb/p/itmd3d4k1d5l2d5l"},
		Rating:  4.5,
		Reviews: 1400,
	},
}

// CatalogFetcher serves a fixed simulated marketplace. Prices derived from a
// URL are a stable function of the URL and the calendar day, so repeated
// fetches within a day agree and prices drift day to day, which exercises the
// change-detection path without external calls.
type CatalogFetcher struct {
	source  string
	catalog []catalogEntry
	now     func() time.Time
}

func NewCatalogFetcher(source string) *CatalogFetcher {
	return &CatalogFetcher{
		source:  source,
		catalog: defaultCatalog,
		now:     time.Now,
	}
}

func (f *CatalogFetcher) FetchProduct(_ context.Context, url string) (*ProductSnapshot, error) {
	if url == "" {
		return nil, fmt.Errorf("fetch product: empty url")
	}

	// Known catalog URLs resolve to the catalog entry for their storefront.
	for _, entry := range f.catalog {
		for source, knownURL := range entry.URLs {
			if knownURL == url {
				return &ProductSnapshot{
					Title:    entry.Name,
					Price:    dailyPrice(url, entry.Prices[source], f.now()),
					Currency: "USD",
					URL:      url,
					Source:   source,
					ImageURL: placeholderImage(entry.Name),
					InStock:  inStockToday(url, f.now()),
					Rating:   entry.Rating,
					Reviews:  entry.Reviews,
				}, nil
			}
		}
	}

	// Unknown URLs get a synthetic product whose base price is a stable
	// function of the URL.
	base := 50 + float64(hash64(url)%950)
	return &ProductSnapshot{
		Title:    syntheticTitle(url),
		Price:    dailyPrice(url, base, f.now()),
		Currency: "USD",
		URL:      url,
		Source:   f.source,
		ImageURL: placeholderImage(syntheticTitle(url)),
		InStock:  inStockToday(url, f.now()),
		Rating:   4.2,
		Reviews:  156,
	}, nil
}

func (f *CatalogFetcher) Search(_ context.Context, query string, maxResults int) ([]models.Listing, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	words := strings.Fields(strings.ToLower(query))
	var listings []models.Listing
	for _, entry := range f.catalog {
		if !matchesAny(strings.ToLower(entry.Name), words) {
			continue
		}
		for source, price := range entry.Prices {
			listings = append(listings, models.Listing{
				Title:   entry.Name + " - " + titleCaseSource(source),
				Price:   price,
				Rating:  entry.Rating,
				Reviews: entry.Reviews,
				Source:  source,
				URL:     entry.URLs[source],
			})
		}
	}

	sort.Slice(listings, func(i, j int) bool {
		if listings[i].Title != listings[j].Title {
			return listings[i].Title < listings[j].Title
		}
		return listings[i].Price < listings[j].Price
	})

	if len(listings) > maxResults {
		listings = listings[:maxResults]
	}
	return listings, nil
}

func matchesAny(name string, words []string) bool {
	for _, word := range words {
		if strings.Contains(name, word) {
			return true
		}
	}
	return false
}

// dailyPrice applies a deterministic wobble of up to about +-3% around the
// base, keyed on the URL and the calendar day.
func dailyPrice(url string, base float64, now time.Time) decimal.Decimal {
	day := now.Format("2006-01-02")
	wobble := float64(hash64(url+day)%600)/10000 - 0.03
	price := math.Round(base*(1+wobble)*100) / 100
	return decimal.NewFromFloat(price)
}

// inStockToday is deterministic per URL and day, out of stock roughly one day
// in four.
func inStockToday(url string, now time.Time) bool {
	day := now.Format("2006-01-02")
	return hash64("stock:"+url+day)%4 != 0
}

func syntheticTitle(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 && idx < len(trimmed)-1 {
		slug := trimmed[idx+1:]
		slug = strings.ReplaceAll(slug, "-", " ")
		slug = strings.ReplaceAll(slug, "_", " ")
		if slug != "" {
			return slug
		}
	}
	return "Product " + fmt.Sprintf("%d", hash64(url)%10000)
}

func placeholderImage(name string) string {
	return "https://via.placeholder.com/300x200?text=" + strings.ReplaceAll(name, " ", "+")
}

func titleCaseSource(source string) string {
	if source == "" {
		return source
	}
	return strings.ToUpper(source[:1]) + source[1:]
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
