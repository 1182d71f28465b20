package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricehawk/pricehawk/internal/services"
)

// CleanupInterface defines the cleanup operations used by the admin handler.
type CleanupInterface interface {
	GetDataStats(ctx context.Context) (map[string]int64, error)
	RunCleanup(ctx context.Context, config services.CleanupConfig) error
}

// AdminHandler exposes data statistics and a manual cleanup trigger.
type AdminHandler struct {
	cleanup       CleanupInterface
	cleanupConfig services.CleanupConfig
}

func NewAdminHandler(cleanup CleanupInterface, cleanupConfig services.CleanupConfig) *AdminHandler {
	return &AdminHandler{cleanup: cleanup, cleanupConfig: cleanupConfig}
}

// GetDataStats handles GET /admin/stats.
func (h *AdminHandler) GetDataStats(c *gin.Context) {
	stats, err := h.cleanup.GetDataStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get data statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// TriggerCleanup handles POST /admin/cleanup. Runs synchronously with the
// configured retention windows.
func (h *AdminHandler) TriggerCleanup(c *gin.Context) {
	if err := h.cleanup.RunCleanup(c.Request.Context(), h.cleanupConfig); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run cleanup"})
		return
	}

	stats, err := h.cleanup.GetDataStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup completed but failed to get updated statistics"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cleanup completed successfully", "stats": stats})
}
