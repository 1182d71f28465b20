package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend classifications for predicted price movement.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// PricePrediction is one projected point of a forecast. Bounds always bracket
// the point estimate and are floored at zero.
type PricePrediction struct {
	Date           string  `json:"date"`
	PredictedPrice float64 `json:"predicted_price"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
	Confidence     string  `json:"confidence"`
}

// Forecast is the derived, regenerable forecast response. It is never
// authoritative; it can be rebuilt at any time from the price history.
type Forecast struct {
	Status         string            `json:"status"`
	Model          string            `json:"model"`
	ProductID      string            `json:"product_id"`
	CurrentPrice   float64           `json:"current_price"`
	Predictions    []PricePrediction `json:"predictions"`
	Trend          string            `json:"trend"`
	Recommendation string            `json:"recommendation"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// HistoricalAnalysis summarizes a product's observed price history.
type HistoricalAnalysis struct {
	ProductID          string          `json:"product_id"`
	PeriodDays         int             `json:"period_days"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	MinPrice           float64         `json:"min_price"`
	MaxPrice           float64         `json:"max_price"`
	AvgPrice           float64         `json:"avg_price"`
	PriceVolatility    float64         `json:"price_volatility"`
	PriceTrend         string          `json:"price_trend"`
	BestPriceDate      string          `json:"best_price_date"`
	SavingsOpportunity float64         `json:"savings_opportunity"`
}
