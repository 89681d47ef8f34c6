package forecast

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/mbd888/finsights/internal/metrics"
	"github.com/mbd888/finsights/internal/mlclient"
)

// fallbackAccuracy is reported for locally synthesized forecasts.
const fallbackAccuracy = 0.85

// Generator produces forecasts, delegating to the model service when it is
// reachable and synthesizing a projection locally otherwise.
type Generator struct {
	ml     *mlclient.Client
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a forecast generator. ml may be nil. rng may be nil, in
// which case a time-seeded source is used; tests inject a seeded one.
func NewGenerator(ml *mlclient.Client, rng *rand.Rand, logger *slog.Logger) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{ml: ml, rng: rng, logger: logger}
}

// Generate projects months*30 daily amounts for a user. Delegated results
// pass through with their own model identifier; the fallback uses
// FallbackModel.
func (g *Generator) Generate(ctx context.Context, userID, period string, months int, history []mlclient.HistoryEntry) (*Forecast, error) {
	if period == "" || months <= 0 {
		return nil, ErrInvalidInput
	}

	if res, err := g.ml.GenerateForecast(ctx, userID, period, months, history); err != nil {
		return nil, err
	} else if res != nil {
		metrics.ForecastsTotal.WithLabelValues("model").Inc()
		predictions := make([]Prediction, 0, len(res.Predictions))
		for _, p := range res.Predictions {
			predictions = append(predictions, Prediction{
				Date:            p.Date,
				PredictedAmount: p.PredictedAmount,
				Confidence:      p.Confidence,
			})
		}
		return &Forecast{
			UserID:      userID,
			Period:      period,
			Months:      months,
			Predictions: predictions,
			Accuracy:    res.Accuracy,
			Model:       res.Model,
			CreatedAt:   time.Now(),
		}, nil
	}

	metrics.ForecastsTotal.WithLabelValues("fallback").Inc()
	return g.fallback(userID, period, months), nil
}

// fallback synthesizes a daily projection starting tomorrow.
func (g *Generator) fallback(userID, period string, months int) *Forecast {
	now := time.Now()
	days := months * 30
	predictions := make([]Prediction, 0, days)

	g.mu.Lock()
	for i := 0; i < days; i++ {
		date := now.AddDate(0, 0, i+1)
		predictions = append(predictions, Prediction{
			Date:            date.Format("2006-01-02"),
			PredictedAmount: round2(1000 + g.rng.Float64()*5000),
			Confidence:      round2(0.7 + g.rng.Float64()*0.3),
		})
	}
	g.mu.Unlock()

	return &Forecast{
		UserID:      userID,
		Period:      period,
		Months:      months,
		Predictions: predictions,
		Accuracy:    fallbackAccuracy,
		Model:       FallbackModel,
		CreatedAt:   now,
	}
}

// PredictSpending is a monthly spending convenience wrapper.
func (g *Generator) PredictSpending(ctx context.Context, userID string, months int, history []mlclient.HistoryEntry) (*Forecast, error) {
	return g.Generate(ctx, userID, PeriodSpending, months, history)
}

// PredictIncome is a monthly income convenience wrapper.
func (g *Generator) PredictIncome(ctx context.Context, userID string, months int, history []mlclient.HistoryEntry) (*Forecast, error) {
	return g.Generate(ctx, userID, PeriodIncome, months, history)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
