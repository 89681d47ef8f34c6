// Package fraud implements transaction fraud scoring and explainability.
//
// Scoring is an additive point system over transaction attributes, capped at
// 100. The policy (tiers, penalties, bands) is data: it lives in a Policy
// value passed into the engine, so the traversal logic never hard-codes a
// threshold. When an external model service is configured, the engine
// delegates to it first and falls back to the local policy when the service
// is unreachable.
package fraud

import "errors"

// ErrInvalidInput is returned when a transaction is missing required fields.
var ErrInvalidInput = errors.New("invalid transaction input")

// Risk levels derived from a score via Policy.RiskBands.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// AmountTier awards points when the amount exceeds a threshold. Tiers are
// mutually exclusive: the highest matching tier wins.
type AmountTier struct {
	Threshold float64
	Points    int
}

// FrequencyTier awards points when the trailing-24h transaction count
// exceeds a threshold.
type FrequencyTier struct {
	Count  int
	Points int
}

// RiskBands holds the low/medium and medium/high cutoffs.
type RiskBands struct {
	Medium int // scores at or above this are medium
	High   int // scores at or above this are high
}

// Policy is the complete, immutable fraud scoring configuration.
type Policy struct {
	FraudThreshold    int // fraudulent iff score >= FraudThreshold
	AmountTiers       []AmountTier
	LocationPenalty   int    // applied when location differs from HomeCountry
	HomeCountry       string // account home country marker
	FrequencyTiers    []FrequencyTier
	WithdrawalPenalty int     // applied to withdrawals above WithdrawalAmount
	WithdrawalAmount  float64 // amount floor for the withdrawal penalty
	Bands             RiskBands
}

// DefaultPolicy returns the standard scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		FraudThreshold: 70,
		AmountTiers: []AmountTier{
			{Threshold: 50000, Points: 60},
			{Threshold: 10000, Points: 40},
			{Threshold: 5000, Points: 20},
		},
		LocationPenalty: 30,
		HomeCountry:     "US",
		FrequencyTiers: []FrequencyTier{
			{Count: 10, Points: 30},
			{Count: 5, Points: 15},
		},
		WithdrawalPenalty: 20,
		WithdrawalAmount:  5000,
		Bands:             RiskBands{Medium: 30, High: 70},
	}
}

// Input carries the transaction attributes the scorer evaluates.
type Input struct {
	Amount      float64
	Location    string // country of origin; empty means unknown
	Type        string // "debit", "credit", "withdrawal", ...
	Description string
	Frequency   int // transactions by the same user in the trailing 24h
}

// Assessment is the result of analyzing a single transaction.
type Assessment struct {
	Score           int      `json:"score"`
	Fraudulent      bool     `json:"fraudulent"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
}

// Score runs the additive point system and returns a value in [0, 100].
func (p Policy) Score(in Input) int {
	score := 0

	// Highest matching amount tier wins.
	for _, tier := range p.AmountTiers {
		if in.Amount > tier.Threshold {
			score += tier.Points
			break
		}
	}

	if in.Location != "" && in.Location != p.HomeCountry {
		score += p.LocationPenalty
	}

	for _, tier := range p.FrequencyTiers {
		if in.Frequency > tier.Count {
			score += tier.Points
			break
		}
	}

	if in.Type == "withdrawal" && in.Amount > p.WithdrawalAmount {
		score += p.WithdrawalPenalty
	}

	if score > 100 {
		score = 100
	}
	return score
}

// RiskLevel maps a score onto its categorical band.
func (p Policy) RiskLevel(score int) string {
	switch {
	case score >= p.Bands.High:
		return RiskHigh
	case score >= p.Bands.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Recommendations returns the action list for a score.
func (p Policy) Recommendations(score int) []string {
	switch {
	case score >= p.FraudThreshold:
		return []string{"Block transaction", "Notify user", "Require additional verification"}
	case score >= 50:
		return []string{"Flag for review", "Monitor user activity"}
	default:
		return []string{"Allow transaction"}
	}
}

// Assess scores a transaction and wraps the result into an Assessment.
func (p Policy) Assess(in Input) *Assessment {
	score := p.Score(in)
	return &Assessment{
		Score:           score,
		Fraudulent:      score >= p.FraudThreshold,
		RiskLevel:       p.RiskLevel(score),
		Recommendations: p.Recommendations(score),
	}
}
