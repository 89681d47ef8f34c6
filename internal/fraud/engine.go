package fraud

import (
	"context"
	"log/slog"

	"github.com/mbd888/finsights/internal/metrics"
	"github.com/mbd888/finsights/internal/mlclient"
)

// Engine analyzes transactions: delegation to the model service first,
// local policy fallback when the service is unreachable.
type Engine struct {
	policy Policy
	ml     *mlclient.Client
	logger *slog.Logger
}

// NewEngine creates a fraud analysis engine. ml may be nil, in which case
// every analysis runs the local policy.
func NewEngine(policy Policy, ml *mlclient.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{policy: policy, ml: ml, logger: logger}
}

// Policy returns the engine's scoring policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Analyze scores a transaction. The model service's verdict, when available,
// is returned verbatim; an unreachable service degrades to the local policy.
// Any other service failure propagates.
func (e *Engine) Analyze(ctx context.Context, in Input, history []mlclient.HistoryEntry) (*Assessment, error) {
	res, err := e.ml.DetectFraud(ctx, mlclient.TransactionFeatures{
		Amount:      in.Amount,
		Location:    in.Location,
		Type:        in.Type,
		Description: in.Description,
		Frequency:   in.Frequency,
	}, history)
	if err != nil {
		return nil, err
	}
	if res != nil {
		return &Assessment{
			Score:           res.Score,
			Fraudulent:      res.Fraudulent,
			RiskLevel:       res.RiskLevel,
			Recommendations: res.Recommendations,
		}, nil
	}

	assessment := e.policy.Assess(in)
	metrics.FraudScoreDistribution.Observe(float64(assessment.Score))
	return assessment, nil
}

// Explain derives feature contributions for a transaction, delegating first.
// A delegated explanation is mapped onto the local contribution shape; the
// fallback runs the rule-based explainer.
func (e *Engine) Explain(ctx context.Context, in Input, userTxCount int, avgRecentAmount float64, history []mlclient.HistoryEntry) ([]FeatureContribution, error) {
	res, err := e.ml.ExplainFraud(ctx, mlclient.TransactionFeatures{
		Amount:      in.Amount,
		Location:    in.Location,
		Type:        in.Type,
		Description: in.Description,
		Frequency:   in.Frequency,
	}, history)
	if err != nil {
		return nil, err
	}
	if res != nil && len(res.TopFeatures) > 0 {
		features := make([]FeatureContribution, 0, len(res.TopFeatures))
		for _, f := range res.TopFeatures {
			features = append(features, FeatureContribution{
				Feature:      f.Feature,
				Contribution: int(f.Contribution),
				Description:  res.Explanation,
				Impact:       impactForContribution(int(f.Contribution)),
			})
		}
		if len(features) > maxFeatures {
			features = features[:maxFeatures]
		}
		return features, nil
	}

	return e.policy.Explain(in, userTxCount, avgRecentAmount), nil
}

// impactForContribution buckets a model-reported contribution the same way
// the local rules do (60 → high, everything else that triggers → medium).
func impactForContribution(contribution int) string {
	if contribution >= 60 {
		return ImpactHigh
	}
	return ImpactMedium
}
