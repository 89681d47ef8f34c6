// Package forecast projects future spending/income and estimates default
// risk from transaction history.
//
// Both paths delegate to the external model service first and synthesize a
// local result when the service is unreachable. Generated forecasts are
// persisted so clients can review prior projections.
package forecast

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a forecast does not exist.
var ErrNotFound = errors.New("forecast not found")

// ErrInvalidInput is returned when period or months are missing or out of range.
var ErrInvalidInput = errors.New("invalid forecast input")

// Forecast periods.
const (
	PeriodMonthly  = "monthly"
	PeriodSpending = "spending"
	PeriodIncome   = "income"
)

// FallbackModel identifies locally synthesized forecasts, distinguishing them
// from delegated model output.
const FallbackModel = "fallback-model-v1"

// Prediction is one day of a projection.
type Prediction struct {
	Date            string  `json:"date"` // ISO day
	PredictedAmount float64 `json:"predictedAmount"`
	Confidence      float64 `json:"confidence"`
}

// Forecast is a persisted projection for a user.
type Forecast struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId,omitempty"`
	Period      string       `json:"period"`
	Months      int          `json:"months"`
	Predictions []Prediction `json:"predictions"`
	Accuracy    float64      `json:"accuracy"`
	Model       string       `json:"model"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Store persists forecasts.
type Store interface {
	Create(ctx context.Context, f *Forecast) error
	Get(ctx context.Context, id string) (*Forecast, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Forecast, error)
}
