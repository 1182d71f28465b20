package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pricehawk/pricehawk/internal/models"
)

// HistoryInterface exposes price history reads.
type HistoryInterface interface {
	GetPriceHistory(ctx context.Context, productID string, days int) ([]models.PricePoint, error)
}

// ForecastInterface exposes forecast generation and history analysis.
type ForecastInterface interface {
	ForecastPrice(ctx context.Context, productID string, daysAhead int) *models.Forecast
	GetHistoricalAnalysis(ctx context.Context, productID string) (*models.HistoricalAnalysis, error)
}

// ProductHandler handles per-product read endpoints: history, forecast and
// analysis.
type ProductHandler struct {
	history     HistoryInterface
	forecasting ForecastInterface
}

func NewProductHandler(history HistoryInterface, forecasting ForecastInterface) *ProductHandler {
	return &ProductHandler{history: history, forecasting: forecasting}
}

// GetPriceHistory handles GET /products/:id/history.
func (h *ProductHandler) GetPriceHistory(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a non-negative integer"})
			return
		}
		days = parsed
	}

	history, err := h.history.GetPriceHistory(c.Request.Context(), c.Param("id"), days)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []models.PricePoint{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history, "count": len(history)})
}

// GetForecast handles GET /products/:id/forecast. Forecasting always produces
// a result; the model field reports which tier served it.
func (h *ProductHandler) GetForecast(c *gin.Context) {
	daysAhead := 0
	if raw := c.Query("days_ahead"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days_ahead must be a positive integer"})
			return
		}
		daysAhead = parsed
	}

	forecast := h.forecasting.ForecastPrice(c.Request.Context(), c.Param("id"), daysAhead)
	c.JSON(http.StatusOK, forecast)
}

// GetAnalysis handles GET /products/:id/analysis.
func (h *ProductHandler) GetAnalysis(c *gin.Context) {
	analysis, err := h.forecasting.GetHistoricalAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}
