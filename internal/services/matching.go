package services

import (
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pricehawk/pricehawk/internal/models"
)

const (
	defaultClusterThreshold = 0.75
	dealThreshold           = 0.7
)

// Similarity scores how likely two listing titles refer to the same product,
// in [0, 1]. Implementations must be symmetric and score identical titles
// as 1.
type Similarity interface {
	Score(a, b string) float64
}

// TokenSimilarity measures cosine similarity over term-frequency vectors of
// lowercased whitespace tokens.
type TokenSimilarity struct{}

func (TokenSimilarity) Score(a, b string) float64 {
	va := termFrequencies(a)
	vb := termFrequencies(b)
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for token, countA := range va {
		normA += countA * countA
		if countB, ok := vb[token]; ok {
			dot += countA * countB
		}
	}
	for _, countB := range vb {
		normB += countB * countB
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func termFrequencies(title string) map[string]float64 {
	freq := make(map[string]float64)
	for _, token := range strings.Fields(strings.ToLower(title)) {
		freq[token]++
	}
	return freq
}

// MatchingService groups listings from multiple sources into clusters of
// equivalent products and surfaces the cheapest offer per cluster. All
// operations are pure: listings are request-scoped and never persisted.
//
// When no similarity scorer is configured the service falls back to lexical
// grouping by a normalized title prefix.
type MatchingService struct {
	similarity Similarity
	threshold  float64
	logger     *logrus.Logger
}

// NewMatchingService creates a matching service. similarity may be nil to
// force the lexical fallback. threshold is the minimum similarity for two
// listings to share a cluster.
func NewMatchingService(similarity Similarity, threshold float64, logger *logrus.Logger) *MatchingService {
	if threshold <= 0 {
		threshold = defaultClusterThreshold
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &MatchingService{similarity: similarity, threshold: threshold, logger: logger}
}

// ClusterProducts groups listings into clusters of presumed-equivalent
// products using the configured similarity scorer, or the lexical fallback
// when none is set.
func (s *MatchingService) ClusterProducts(listings []models.Listing) [][]models.Listing {
	return s.clusterAt(listings, s.threshold)
}

// clusterAt runs a single greedy pass: iterate listings in input order, skip
// assigned ones, open a new cluster for each unassigned listing and pull in
// every later unassigned listing whose similarity to the seed meets the
// threshold. Single-link and order-dependent, which is accepted here over a
// globally optimal grouping.
func (s *MatchingService) clusterAt(listings []models.Listing, threshold float64) [][]models.Listing {
	if len(listings) == 0 {
		return nil
	}
	if s.similarity == nil {
		return lexicalClusters(listings)
	}

	used := make([]bool, len(listings))
	var clusters [][]models.Listing
	for i := range listings {
		if used[i] {
			continue
		}
		cluster := []models.Listing{listings[i]}
		used[i] = true
		for j := i + 1; j < len(listings); j++ {
			if used[j] {
				continue
			}
			if s.similarity.Score(listings[i].Title, listings[j].Title) >= threshold {
				cluster = append(cluster, listings[j])
				used[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// lexicalClusters buckets listings by a coarse key derived from the title.
// Bucket order follows first occurrence so the result is deterministic.
func lexicalClusters(listings []models.Listing) [][]models.Listing {
	buckets := make(map[string]int)
	var clusters [][]models.Listing
	for _, listing := range listings {
		key := lexicalKey(listing.Title)
		idx, seen := buckets[key]
		if !seen {
			idx = len(clusters)
			buckets[key] = idx
			clusters = append(clusters, nil)
		}
		clusters[idx] = append(clusters[idx], listing)
	}
	return clusters
}

// FindBestDeals clusters listings at the deal threshold and returns one
// representative per cluster, the minimum-price member. Ties keep the
// earliest listing.
func (s *MatchingService) FindBestDeals(listings []models.Listing) []models.Listing {
	clusters := s.clusterAt(listings, dealThreshold)

	deals := make([]models.Listing, 0, len(clusters))
	for _, cluster := range clusters {
		best := cluster[0]
		for _, listing := range cluster[1:] {
			if listing.Price < best.Price {
				best = listing
			}
		}
		deals = append(deals, best)
	}

	s.logger.WithFields(logrus.Fields{
		"listings": len(listings),
		"deals":    len(deals),
	}).Debug("Best deal comparison complete")
	return deals
}

// GetClusterSummary aggregates one cluster: price extremes and mean, mean
// rating over rated listings, the distinct sources and the cheapest listing.
func (s *MatchingService) GetClusterSummary(cluster []models.Listing) *models.ClusterSummary {
	if len(cluster) == 0 {
		return &models.ClusterSummary{Sources: []string{}}
	}

	best := cluster[0]
	minPrice, maxPrice := cluster[0].Price, cluster[0].Price
	var priceSum, ratingSum float64
	var rated int
	sourceSet := make(map[string]struct{})

	for _, listing := range cluster {
		priceSum += listing.Price
		if listing.Price < minPrice {
			minPrice = listing.Price
		}
		if listing.Price > maxPrice {
			maxPrice = listing.Price
		}
		if listing.Price < best.Price {
			best = listing
		}
		if listing.Rating > 0 {
			ratingSum += listing.Rating
			rated++
		}
		sourceSet[listing.Source] = struct{}{}
	}

	sources := make([]string, 0, len(sourceSet))
	for source := range sourceSet {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	avgRating := 0.0
	if rated > 0 {
		avgRating = ratingSum / float64(rated)
	}

	return &models.ClusterSummary{
		Count:     len(cluster),
		MinPrice:  round2(minPrice),
		MaxPrice:  round2(maxPrice),
		AvgPrice:  round2(priceSum / float64(len(cluster))),
		AvgRating: round2(avgRating),
		Sources:   sources,
		BestPrice: &best,
	}
}

// lexicalKey reduces a title to a coarse grouping key: the lowercased text
// before the first "-" when present, otherwise the first word.
func lexicalKey(title string) string {
	lowered := strings.ToLower(title)
	if head, _, found := strings.Cut(lowered, "-"); found {
		if key := strings.TrimSpace(head); key != "" {
			return key
		}
		return "unknown"
	}
	fields := strings.Fields(lowered)
	if len(fields) == 0 {
		return "unknown"
	}
	return fields[0]
}
