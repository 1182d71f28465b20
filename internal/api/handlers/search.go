package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pricehawk/pricehawk/internal/models"
	"github.com/pricehawk/pricehawk/internal/services"
)

// MatchingInterface defines the clustering operations used by the search
// handler.
type MatchingInterface interface {
	ClusterProducts(listings []models.Listing) [][]models.Listing
	FindBestDeals(listings []models.Listing) []models.Listing
	GetClusterSummary(cluster []models.Listing) *models.ClusterSummary
}

// SearchHandler handles marketplace search and cross-source deal comparison.
type SearchHandler struct {
	resolver services.FetcherResolver
	matching MatchingInterface
	logger   *logrus.Logger
}

func NewSearchHandler(resolver services.FetcherResolver, matching MatchingInterface, logger *logrus.Logger) *SearchHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &SearchHandler{resolver: resolver, matching: matching, logger: logger}
}

// Search handles GET /search. Results come back flat plus grouped into best
// deals across sources.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		query = c.Query("q")
	}
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}

	maxResults := 10
	if raw := c.Query("max_results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_results must be a positive integer"})
			return
		}
		maxResults = parsed
	}

	fetcher, err := h.resolver.Get(c.Query("source"))
	if err != nil {
		h.logger.Errorf("Search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	listings, err := fetcher.Search(c.Request.Context(), query, maxResults)
	if err != nil {
		h.logger.Errorf("Search failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}

	deals := h.matching.FindBestDeals(listings)
	if deals == nil {
		deals = []models.Listing{}
	}

	c.JSON(http.StatusOK, gin.H{"results": listings, "best": deals})
}

// Compare handles POST /search/compare: clusters caller-supplied listings and
// returns per-cluster summaries.
func (h *SearchHandler) Compare(c *gin.Context) {
	var req struct {
		Listings []models.Listing `json:"listings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	clusters := h.matching.ClusterProducts(req.Listings)
	summaries := make([]*models.ClusterSummary, 0, len(clusters))
	for _, cluster := range clusters {
		summaries = append(summaries, h.matching.GetClusterSummary(cluster))
	}

	c.JSON(http.StatusOK, gin.H{"clusters": summaries, "count": len(summaries)})
}
