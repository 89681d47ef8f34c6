package simulation

import "math"

// Aggregate summarizes a collection of runs. Averages cover only completed
// runs that carry metrics; an empty input yields all zeros, never NaN.
func Aggregate(sims []*Simulation) AggregatedMetrics {
	agg := AggregatedMetrics{
		TotalSimulations:   len(sims),
		StatusDistribution: make(map[string]int),
	}

	completed := 0
	withMetrics := 0
	var accuracySum, lossSum, durationSum float64

	for _, sim := range sims {
		agg.StatusDistribution[sim.Status]++
		if sim.Status != StatusCompleted {
			continue
		}
		completed++
		if sim.Metrics == nil {
			continue
		}
		withMetrics++
		accuracySum += sim.Metrics.Accuracy
		lossSum += sim.Metrics.Loss
		durationSum += sim.Metrics.Duration
	}

	if withMetrics > 0 {
		agg.AverageAccuracy = round4(accuracySum / float64(withMetrics))
		agg.AverageLoss = round4(lossSum / float64(withMetrics))
		agg.AverageDuration = round4(durationSum / float64(withMetrics))
		agg.TotalDuration = round4(durationSum)
	}
	if len(sims) > 0 {
		agg.SuccessRate = round4(float64(completed) / float64(len(sims)))
	}
	return agg
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
