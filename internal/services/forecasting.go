package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/pricehawk/pricehawk/internal/models"
	"github.com/pricehawk/pricehawk/internal/utils"
)

const (
	defaultDaysAhead         = 7
	defaultMaxDaysAhead      = 30
	defaultHistoryWindowDays = 90
	seasonalMinPoints        = 10
	smaPeriod                = 7
)

// pricePoint is a history observation in float form, used by the forecast
// math.
type pricePoint struct {
	date  time.Time
	price float64
}

// forecastStrategy is one tier of the fallback chain. Strategies are tried in
// priority order; any error falls through to the next tier.
type forecastStrategy interface {
	Name() string
	MinPoints() int
	Forecast(productID string, points []pricePoint, daysAhead int, now time.Time) ([]models.PricePrediction, float64, error)
}

// ForecastService produces price predictions from history with a three-tier
// model fallback. It never returns an error to the caller: the final tier
// always succeeds. Forecast generation is a pure read of history and never
// mutates it.
type ForecastService struct {
	products   ProductStore
	cache      Cache
	logger     *logrus.Logger
	strategies []forecastStrategy

	cacheTTL          time.Duration
	maxDaysAhead      int
	historyWindowDays int
	now               func() time.Time
}

// NewForecastService creates a forecast service with the standard strategy
// chain: seasonal trend, simple trend, deterministic demo. cache may be nil.
func NewForecastService(products ProductStore, cache Cache, cacheTTL time.Duration, logger *logrus.Logger) *ForecastService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ForecastService{
		products: products,
		cache:    cache,
		logger:   logger,
		strategies: []forecastStrategy{
			&seasonalTrendStrategy{},
			&simpleTrendStrategy{},
			&demoStrategy{},
		},
		cacheTTL:          cacheTTL,
		maxDaysAhead:      defaultMaxDaysAhead,
		historyWindowDays: defaultHistoryWindowDays,
		now:               time.Now,
	}
}

// ForecastPrice predicts the product's price for the next daysAhead days.
// The result always has exactly daysAhead predictions with ascending dates,
// each satisfying 0 <= lower <= predicted <= upper.
func (s *ForecastService) ForecastPrice(ctx context.Context, productID string, daysAhead int) *models.Forecast {
	if daysAhead <= 0 {
		daysAhead = defaultDaysAhead
	}
	if daysAhead > s.maxDaysAhead {
		daysAhead = s.maxDaysAhead
	}

	cacheKey := fmt.Sprintf("forecast:%s:%d", productID, daysAhead)
	if cached := s.cachedForecast(ctx, cacheKey); cached != nil {
		return cached
	}

	now := s.now()
	points := s.loadHistory(ctx, productID)

	var forecast *models.Forecast
	for _, strategy := range s.strategies {
		if len(points) < strategy.MinPoints() {
			continue
		}
		predictions, currentPrice, err := strategy.Forecast(productID, points, daysAhead, now)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"product_id": productID,
				"model":      strategy.Name(),
			}).Warnf("Forecast model failed, falling back: %v", err)
			continue
		}

		trendLabel, recommendation := classifyForecast(currentPrice, predictions)
		forecast = &models.Forecast{
			Status:         "success",
			Model:          strategy.Name(),
			ProductID:      productID,
			CurrentPrice:   round2(currentPrice),
			Predictions:    predictions,
			Trend:          trendLabel,
			Recommendation: recommendation,
			GeneratedAt:    now,
		}
		break
	}

	s.storeForecast(ctx, cacheKey, forecast)
	return forecast
}

// loadHistory fetches the bounded history window for a product. Any failure
// yields an empty slice, which pushes the strategy chain to the demo tier.
func (s *ForecastService) loadHistory(ctx context.Context, productID string) []pricePoint {
	since := s.now().AddDate(0, 0, -s.historyWindowDays)
	history, err := s.products.GetPriceHistory(ctx, productID, &since)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"product_id": productID}).
			Warnf("Failed to load price history for forecast: %v", err)
		return nil
	}

	points := make([]pricePoint, 0, len(history))
	for _, h := range history {
		points = append(points, pricePoint{date: h.Timestamp, price: h.Price.InexactFloat64()})
	}
	return points
}

func (s *ForecastService) cachedForecast(ctx context.Context, key string) *models.Forecast {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil
	}
	var forecast models.Forecast
	if err := json.Unmarshal([]byte(raw), &forecast); err != nil {
		return nil
	}
	return &forecast
}

func (s *ForecastService) storeForecast(ctx context.Context, key string, forecast *models.Forecast) {
	if s.cache == nil || forecast == nil {
		return
	}
	payload, err := json.Marshal(forecast)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
		s.logger.Warnf("Failed to cache forecast: %v", err)
	}
}

// classifyForecast compares the mean predicted price against the last known
// price: beyond +-1% it is increasing/decreasing, otherwise stable. The
// recommendation text follows the +-5% thresholds.
func classifyForecast(currentPrice float64, predictions []models.PricePrediction) (string, string) {
	if len(predictions) == 0 || currentPrice <= 0 {
		return models.TrendStable, "Insufficient data for recommendation"
	}

	sum := 0.0
	for _, p := range predictions {
		sum += p.PredictedPrice
	}
	avg := sum / float64(len(predictions))
	changePct := (avg - currentPrice) / currentPrice * 100

	trendLabel := models.TrendStable
	switch {
	case changePct > 1:
		trendLabel = models.TrendIncreasing
	case changePct < -1:
		trendLabel = models.TrendDecreasing
	}

	days := len(predictions)
	var recommendation string
	switch {
	case changePct < -5:
		recommendation = fmt.Sprintf("Wait to buy - price expected to drop by %.1f%% in next %d days", math.Abs(changePct), days)
	case changePct > 5:
		recommendation = fmt.Sprintf("Buy now - price expected to rise by %.1f%% in next %d days", changePct, days)
	default:
		recommendation = fmt.Sprintf("Stable pricing - price change expected: %+.1f%%", changePct)
	}
	return trendLabel, recommendation
}

// seasonalTrendStrategy fits a least-squares trend plus day-of-week
// seasonality over the history and projects it forward. The residual spread
// drives the confidence interval. Requires at least ten observations.
type seasonalTrendStrategy struct{}

func (st *seasonalTrendStrategy) Name() string   { return "seasonal_trend" }
func (st *seasonalTrendStrategy) MinPoints() int { return seasonalMinPoints }

func (st *seasonalTrendStrategy) Forecast(_ string, points []pricePoint, daysAhead int, _ time.Time) ([]models.PricePrediction, float64, error) {
	n := len(points)
	origin := points[0].date

	// Least-squares fit of price over elapsed days.
	xs := make([]float64, n)
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range points {
		x := p.date.Sub(origin).Hours() / 24
		xs[i] = x
		sumX += x
		sumY += p.price
		sumXY += x * p.price
		sumXX += x * x
	}
	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return nil, 0, fmt.Errorf("degenerate history: all observations share one timestamp")
	}
	slope := (float64(n)*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / float64(n)

	// Average residual per weekday captures the weekly cycle.
	seasonal := make(map[time.Weekday]float64, 7)
	counts := make(map[time.Weekday]int, 7)
	var variance float64
	for i, p := range points {
		residual := p.price - (intercept + slope*xs[i])
		seasonal[p.date.Weekday()] += residual
		counts[p.date.Weekday()]++
		variance += residual * residual
	}
	for day, total := range seasonal {
		seasonal[day] = total / float64(counts[day])
	}
	sigma := math.Sqrt(variance / float64(n))

	last := points[n-1]
	lastX := xs[n-1]
	predictions := make([]models.PricePrediction, 0, daysAhead)
	for step := 1; step <= daysAhead; step++ {
		date := last.date.AddDate(0, 0, step)
		estimate := intercept + slope*(lastX+float64(step)) + seasonal[date.Weekday()]
		estimate = math.Max(0, estimate)
		lower := math.Max(0, estimate-1.96*sigma)
		upper := math.Max(estimate, estimate+1.96*sigma)

		confidence := "medium"
		if estimate > 0 && upper-lower < estimate*0.1 {
			confidence = "high"
		}

		predictions = append(predictions, models.PricePrediction{
			Date:           date.Format("2006-01-02"),
			PredictedPrice: round2(estimate),
			LowerBound:     round2(lower),
			UpperBound:     round2(upper),
			Confidence:     confidence,
		})
	}
	return predictions, last.price, nil
}

// simpleTrendStrategy extrapolates a blended daily change: 70% weight on the
// last seven observations, 30% on the full window, with a weekly sinusoid and
// a bounded perturbation of about 2% of the price.
type simpleTrendStrategy struct{}

func (st *simpleTrendStrategy) Name() string   { return "simple_trend" }
func (st *simpleTrendStrategy) MinPoints() int { return 1 }

func (st *simpleTrendStrategy) Forecast(_ string, points []pricePoint, daysAhead int, _ time.Time) ([]models.PricePrediction, float64, error) {
	n := len(points)
	if n == 0 {
		return nil, 0, fmt.Errorf("no usable history")
	}

	trendWeight := 0.0
	if n >= 3 {
		recentStart := n - 7
		if recentStart < 0 {
			recentStart = 0
		}
		recent := points[recentStart:]
		var recentDelta float64
		for i := 1; i < len(recent); i++ {
			recentDelta += recent[i].price - recent[i-1].price
		}
		recentTrend := recentDelta / float64(len(recent)-1)
		overallTrend := (points[n-1].price - points[0].price) / float64(n)
		trendWeight = 0.7*recentTrend + 0.3*overallTrend
	}

	last := points[n-1]
	predictions := make([]models.PricePrediction, 0, daysAhead)
	for step := 1; step <= daysAhead; step++ {
		seasonalFactor := 1 + 0.05*math.Sin(2*math.Pi*float64(step)/7)
		noise := (rand.Float64()*2 - 1) * 0.02 * last.price

		estimate := last.price + trendWeight*float64(step)*seasonalFactor + noise
		estimate = math.Max(0, estimate)

		predictions = append(predictions, models.PricePrediction{
			Date:           last.date.AddDate(0, 0, step).Format("2006-01-02"),
			PredictedPrice: round2(estimate),
			LowerBound:     round2(estimate * 0.95),
			UpperBound:     round2(estimate * 1.05),
			Confidence:     "medium",
		})
	}
	return predictions, last.price, nil
}

// demoStrategy is the terminal tier. It derives a stable synthetic base price
// from the product identifier so repeated calls for the same product are
// reproducible, then applies a small daily decay with bounded randomness.
type demoStrategy struct{}

func (d *demoStrategy) Name() string   { return "demo" }
func (d *demoStrategy) MinPoints() int { return 0 }

func (d *demoStrategy) Forecast(productID string, _ []pricePoint, daysAhead int, now time.Time) ([]models.PricePrediction, float64, error) {
	seed := fnv.New64a()
	_, _ = seed.Write([]byte(productID))
	rnd := rand.New(rand.NewSource(int64(seed.Sum64())))

	base := 500 + float64(seed.Sum64()%500)
	predictions := make([]models.PricePrediction, 0, daysAhead)
	for step := 1; step <= daysAhead; step++ {
		estimate := base * (0.98 + 0.02*rnd.Float64())

		predictions = append(predictions, models.PricePrediction{
			Date:           now.AddDate(0, 0, step).Format("2006-01-02"),
			PredictedPrice: round2(estimate),
			LowerBound:     round2(estimate * 0.95),
			UpperBound:     round2(estimate * 1.05),
			Confidence:     "demo",
		})
	}
	return predictions, base, nil
}

// GetHistoricalAnalysis summarizes the product's observed history over the
// default window: price extremes, mean, volatility, the date of the minimum
// and the savings opportunity relative to the current price.
func (s *ForecastService) GetHistoricalAnalysis(ctx context.Context, productID string) (*models.HistoricalAnalysis, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("historical analysis: %w", err)
	}
	if product == nil {
		return nil, utils.NewNotFoundError("product", productID)
	}

	points := s.loadHistory(ctx, productID)
	if len(points) == 0 {
		points = []pricePoint{{date: s.now(), price: product.CurrentPrice.InexactFloat64()}}
	}

	prices := make([]float64, len(points))
	minIdx := 0
	var sum float64
	for i, p := range points {
		prices[i] = p.price
		sum += p.price
		if p.price < prices[minIdx] {
			minIdx = i
		}
	}
	mean := sum / float64(len(prices))

	var variance float64
	maxPrice := prices[0]
	for _, p := range prices {
		variance += (p - mean) * (p - mean)
		if p > maxPrice {
			maxPrice = p
		}
	}
	stdDev := math.Sqrt(variance / float64(len(prices)))

	current := prices[len(prices)-1]
	savings := math.Max(0, current-prices[minIdx])

	return &models.HistoricalAnalysis{
		ProductID:          productID,
		PeriodDays:         len(points),
		CurrentPrice:       product.CurrentPrice,
		MinPrice:           round2(prices[minIdx]),
		MaxPrice:           round2(maxPrice),
		AvgPrice:           round2(mean),
		PriceVolatility:    round2(stdDev),
		PriceTrend:         longRunDirection(prices),
		BestPriceDate:      points[minIdx].date.Format("2006-01-02"),
		SavingsOpportunity: round2(savings),
	}, nil
}

// longRunDirection classifies the overall direction of a price series,
// smoothing with a simple moving average when the series is long enough to
// support one.
func longRunDirection(prices []float64) string {
	series := prices
	if len(prices) >= smaPeriod {
		sma := trend.NewSmaWithPeriod[float64](smaPeriod)
		series = helper.ChanToSlice(sma.Compute(helper.SliceToChan(prices)))
	}
	if len(series) < 2 {
		return models.TrendStable
	}

	first, last := series[0], series[len(series)-1]
	switch {
	case last < first:
		return models.TrendDecreasing
	case last > first:
		return models.TrendIncreasing
	default:
		return models.TrendStable
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
