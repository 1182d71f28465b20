package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricehawk/pricehawk/internal/models"
)

// TrackingInterface defines the tracking operations used by the handler.
type TrackingInterface interface {
	TrackProduct(ctx context.Context, userID string, req models.TrackRequest) (*models.TrackResult, error)
	UntrackProduct(ctx context.Context, userID, productID string) error
	GetTrackedProducts(ctx context.Context, userID string) ([]models.TrackedProduct, error)
	UpdateTrackingPreferences(ctx context.Context, userID, productID string, prefs models.TrackingPreferences) error
}

// TrackingHandler handles subscription lifecycle endpoints.
type TrackingHandler struct {
	tracking TrackingInterface
}

func NewTrackingHandler(tracking TrackingInterface) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

// TrackProduct handles POST /tracking/track.
func (h *TrackingHandler) TrackProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.tracking.TrackProduct(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.SubscriptionCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

// UntrackProduct handles DELETE /tracking/untrack/:productId.
func (h *TrackingHandler) UntrackProduct(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.tracking.UntrackProduct(c.Request.Context(), userID, c.Param("productId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product untracked"})
}

// GetTrackedProducts handles GET /tracking/products.
func (h *TrackingHandler) GetTrackedProducts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	products, err := h.tracking.GetTrackedProducts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []models.TrackedProduct{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// UpdatePreferences handles PATCH /tracking/preferences/:productId.
func (h *TrackingHandler) UpdatePreferences(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var prefs models.TrackingPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.tracking.UpdateTrackingPreferences(c.Request.Context(), userID, c.Param("productId"), prefs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Preferences updated"})
}
