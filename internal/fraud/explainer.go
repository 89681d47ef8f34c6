package fraud

import (
	"fmt"
	"sort"
)

// Impact levels for feature contributions.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// maxFeatures caps the number of contributions returned per explanation.
const maxFeatures = 5

// FeatureContribution is a named reason with a weight explaining part of a
// fraud score.
type FeatureContribution struct {
	Feature      string `json:"feature"`
	Contribution int    `json:"contribution"`
	Description  string `json:"description"`
	Impact       string `json:"impact"`
}

// Explain derives ranked contributing factors for a transaction. Each rule is
// evaluated independently and only included when triggered. Results are
// sorted by contribution (stable, descending) and truncated to five.
//
// userTxCount is the user's trailing-24h transaction count;
// avgRecentAmount is the mean amount of the user's recent transactions.
func (p Policy) Explain(in Input, userTxCount int, avgRecentAmount float64) []FeatureContribution {
	var features []FeatureContribution

	if in.Amount > 50000 {
		features = append(features, FeatureContribution{
			Feature:      "High Transaction Amount",
			Contribution: 60,
			Description:  fmt.Sprintf("Transaction amount of $%.2f exceeds high-risk threshold", in.Amount),
			Impact:       ImpactHigh,
		})
	} else if in.Amount > 10000 {
		features = append(features, FeatureContribution{
			Feature:      "Large Transaction Amount",
			Contribution: 40,
			Description:  fmt.Sprintf("Transaction amount of $%.2f is significantly above average", in.Amount),
			Impact:       ImpactMedium,
		})
	}

	if in.Location != "" && in.Location != p.HomeCountry {
		features = append(features, FeatureContribution{
			Feature:      "International Transaction",
			Contribution: p.LocationPenalty,
			Description:  fmt.Sprintf("Transaction from country: %s", in.Location),
			Impact:       ImpactMedium,
		})
	}

	if userTxCount > 10 {
		features = append(features, FeatureContribution{
			Feature:      "High Transaction Frequency",
			Contribution: 30,
			Description:  fmt.Sprintf("User has made %d transactions in the last 24 hours", userTxCount),
			Impact:       ImpactMedium,
		})
	}

	if avgRecentAmount > 0 && in.Amount > avgRecentAmount*3 {
		features = append(features, FeatureContribution{
			Feature:      "Amount Deviation from Pattern",
			Contribution: 25,
			Description:  fmt.Sprintf("Transaction amount is %.1fx the user's average", in.Amount/avgRecentAmount),
			Impact:       ImpactMedium,
		})
	}

	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Contribution > features[j].Contribution
	})

	if len(features) > maxFeatures {
		features = features[:maxFeatures]
	}
	return features
}
