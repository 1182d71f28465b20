package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricehawk/pricehawk/internal/utils"
)

// userIDHeader carries the caller's identity. Authentication happens at the
// edge; by the time a request reaches this service the header is trusted.
const userIDHeader = "X-User-ID"

// currentUser extracts the caller's user id. When missing it writes a 400
// response and returns false.
func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetHeader(userIDHeader)
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
		return "", false
	}
	return userID, true
}

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
