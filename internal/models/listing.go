package models

// Listing is a raw search result from one source. Listings are request-scoped:
// they exist only while clustering and deal comparison run, and are never
// persisted.
type Listing struct {
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	Rating  float64 `json:"rating,omitempty"`
	Reviews int     `json:"reviews,omitempty"`
	Source  string  `json:"source"`
	URL     string  `json:"url,omitempty"`
}

// ClusterSummary holds aggregate statistics for one cluster of equivalent
// listings.
type ClusterSummary struct {
	Count     int      `json:"count"`
	MinPrice  float64  `json:"min_price"`
	MaxPrice  float64  `json:"max_price"`
	AvgPrice  float64  `json:"avg_price"`
	AvgRating float64  `json:"avg_rating"`
	Sources   []string `json:"sources"`
	BestPrice *Listing `json:"best_price_product,omitempty"`
}
