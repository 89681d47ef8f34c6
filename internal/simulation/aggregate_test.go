package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_Empty(t *testing.T) {
	agg := Aggregate(nil)

	assert.Equal(t, 0, agg.TotalSimulations)
	assert.Equal(t, 0.0, agg.AverageAccuracy)
	assert.Equal(t, 0.0, agg.AverageLoss)
	assert.Equal(t, 0.0, agg.AverageDuration)
	assert.Equal(t, 0.0, agg.TotalDuration)
	assert.Equal(t, 0.0, agg.SuccessRate)
	assert.Empty(t, agg.StatusDistribution)
}

func TestAggregate_MixedStatuses(t *testing.T) {
	sims := []*Simulation{
		{Status: StatusCompleted, Metrics: &Metrics{Accuracy: 0.9, Loss: 0.1, Duration: 2}},
		{Status: StatusCompleted, Metrics: &Metrics{Accuracy: 0.8, Loss: 0.2, Duration: 4}},
		{Status: StatusFailed},
		{Status: StatusPending},
	}

	agg := Aggregate(sims)

	assert.Equal(t, 4, agg.TotalSimulations)
	assert.Equal(t, 0.85, agg.AverageAccuracy)
	assert.InDelta(t, 0.15, agg.AverageLoss, 1e-9)
	assert.Equal(t, 3.0, agg.AverageDuration)
	assert.Equal(t, 6.0, agg.TotalDuration)
	assert.Equal(t, 0.5, agg.SuccessRate)
	assert.Equal(t, map[string]int{
		StatusCompleted: 2,
		StatusFailed:    1,
		StatusPending:   1,
	}, agg.StatusDistribution)
}

func TestAggregate_FailedMetricsExcluded(t *testing.T) {
	// Metrics attached to non-completed runs never skew the averages.
	sims := []*Simulation{
		{Status: StatusCompleted, Metrics: &Metrics{Accuracy: 0.9, Loss: 0.1, Duration: 1}},
		{Status: StatusFailed, Metrics: &Metrics{Accuracy: 0.1, Loss: 0.9, Duration: 100}},
	}

	agg := Aggregate(sims)

	assert.Equal(t, 0.9, agg.AverageAccuracy)
	assert.Equal(t, 1.0, agg.TotalDuration)
	assert.Equal(t, 0.5, agg.SuccessRate)
}

func TestAggregate_CompletedWithoutMetrics(t *testing.T) {
	sims := []*Simulation{
		{Status: StatusCompleted},
	}

	agg := Aggregate(sims)

	assert.Equal(t, 1.0, agg.SuccessRate)
	assert.Equal(t, 0.0, agg.AverageAccuracy)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusRunning))
	assert.True(t, CanTransition(StatusRunning, StatusCompleted))
	assert.True(t, CanTransition(StatusRunning, StatusFailed))
	assert.True(t, CanTransition(StatusPending, StatusCompleted))

	assert.False(t, CanTransition(StatusRunning, StatusPending))
	assert.False(t, CanTransition(StatusCompleted, StatusRunning))
	assert.False(t, CanTransition(StatusCompleted, StatusFailed))
	assert.False(t, CanTransition(StatusFailed, StatusCompleted))
	assert.False(t, CanTransition("bogus", StatusRunning))
}
