// Package simulation synthesizes structured analytical output for arbitrary
// input data and aggregates statistics across runs.
//
// A run moves pending -> running -> completed|failed, with each transition
// written durably before processing continues. Output and metrics exist only
// for completed runs. The analysis type is decided once at the boundary from
// the shape of the input data, never re-inspected inside the synthesis code.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a simulation does not exist.
var ErrNotFound = errors.New("simulation not found")

// ErrInvalidInput is returned when the input has no data payload.
var ErrInvalidInput = errors.New("simulation input requires data")

// ErrInvalidTransition is returned on a backwards status transition.
var ErrInvalidTransition = errors.New("invalid simulation status transition")

// Simulation statuses. Transitions only move forward.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// statusRank orders statuses for the forward-only transition rule.
var statusRank = map[string]int{
	StatusPending:   0,
	StatusRunning:   1,
	StatusCompleted: 2,
	StatusFailed:    2,
}

// CanTransition reports whether a status change moves forward.
func CanTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Analysis types.
const (
	TypePrediction     = "prediction"
	TypePattern        = "pattern"
	TypeClassification = "classification"
	TypeAnalysis       = "analysis"
)

// Metrics is the per-run quality summary, linked 1:1 to a completed run.
type Metrics struct {
	Accuracy float64 `json:"accuracy"` // [0.6, 0.99]
	Loss     float64 `json:"loss"`     // [0.01, 0.4]
	Duration float64 `json:"duration"` // seconds
}

// Simulation is one analysis run.
type Simulation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name,omitempty"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Input     json.RawMessage `json:"inputData,omitempty"`
	Output    json.RawMessage `json:"outputData,omitempty"`
	Metrics   *Metrics        `json:"metrics,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AggregatedMetrics is a read-only summary across all runs.
type AggregatedMetrics struct {
	TotalSimulations   int            `json:"totalSimulations"`
	AverageAccuracy    float64        `json:"averageAccuracy"`
	AverageLoss        float64        `json:"averageLoss"`
	AverageDuration    float64        `json:"averageDuration"`
	TotalDuration      float64        `json:"totalDuration"`
	StatusDistribution map[string]int `json:"statusDistribution"`
	SuccessRate        float64        `json:"successRate"`
}

// Store persists simulations.
type Store interface {
	Create(ctx context.Context, sim *Simulation) error
	Get(ctx context.Context, id string) (*Simulation, error)
	List(ctx context.Context, limit int) ([]*Simulation, error)
	// UpdateStatus applies a forward-only status change.
	UpdateStatus(ctx context.Context, id, status string) error
	// Complete marks a run completed and attaches its output and metrics.
	Complete(ctx context.Context, id string, output json.RawMessage, metrics Metrics) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
