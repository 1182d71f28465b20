package fetch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pricehawk/pricehawk/internal/models"
)

// ProductSnapshot is the current observed state of a product at its source.
type ProductSnapshot struct {
	Title    string
	Price    decimal.Decimal
	Currency string
	URL      string
	Source   string
	ImageURL string
	InStock  bool
	Rating   float64
	Reviews  int
}

// Fetcher retrieves product data from one marketplace source.
type Fetcher interface {
	// FetchProduct resolves a product URL to its current snapshot.
	FetchProduct(ctx context.Context, url string) (*ProductSnapshot, error)
	// Search returns up to maxResults listings matching the query.
	Search(ctx context.Context, query string, maxResults int) ([]models.Listing, error)
}

// Registry maps source names to fetchers. Lookups for unknown sources fall
// back to the default source.
type Registry struct {
	mu            sync.RWMutex
	fetchers      map[string]Fetcher
	defaultSource string
}

func NewRegistry(defaultSource string) *Registry {
	return &Registry{
		fetchers:      make(map[string]Fetcher),
		defaultSource: defaultSource,
	}
}

func (r *Registry) Register(source string, fetcher Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[source] = fetcher
}

// Get returns the fetcher for a source, falling back to the default source
// when the name is empty or unregistered.
func (r *Registry) Get(source string) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if source != "" {
		if fetcher, ok := r.fetchers[source]; ok {
			return fetcher, nil
		}
	}
	if fetcher, ok := r.fetchers[r.defaultSource]; ok {
		return fetcher, nil
	}
	return nil, fmt.Errorf("no fetcher registered for source %q and no default available", source)
}

// Sources lists the registered source names in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.fetchers))
	for source := range r.fetchers {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}
