package forecast

import (
	"context"
	"time"

	"github.com/mbd888/finsights/internal/mlclient"
	"github.com/mbd888/finsights/internal/transaction"
)

// NoRiskFactors is the sentinel factor reported when nothing triggers.
const NoRiskFactors = "No significant risk factors identified"

// Risk levels for default-risk scores (bands at 30/70).
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// DefaultRisk is a user's estimated likelihood of default.
type DefaultRisk struct {
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	Probability float64  `json:"probability"`
	Factors     []string `json:"factors"`
}

// EstimateDefaultRisk scores a user's default risk. Delegation first; the
// local estimator runs rule-based heuristics over the transaction history.
func (g *Generator) EstimateDefaultRisk(ctx context.Context, userID string, txs []*transaction.Transaction, monthlyIncome float64) (*DefaultRisk, error) {
	history := make([]mlclient.HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		history = append(history, mlclient.HistoryEntry{
			Amount:    tx.SignedAmount(),
			Type:      tx.Type,
			Country:   tx.Country,
			Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	if res, err := g.ml.CalculateDefaultRisk(ctx, userID, history, monthlyIncome); err != nil {
		return nil, err
	} else if res != nil {
		return &DefaultRisk{
			Score:       int(res.Score),
			Level:       res.Level,
			Probability: res.Probability,
			Factors:     res.Factors,
		}, nil
	}

	return estimateLocally(txs, monthlyIncome, time.Now()), nil
}

// estimateLocally applies the rule-based default-risk heuristics. Each rule is
// independent; the score is the capped sum of triggered rules.
func estimateLocally(txs []*transaction.Transaction, monthlyIncome float64, now time.Time) *DefaultRisk {
	score := 0
	var factors []string

	var totalDebits float64
	var recentCount, largeCount int
	var recentNetFlow float64
	fraudFlagged := false

	cutoff := now.AddDate(0, 0, -30)
	for _, tx := range txs {
		if tx.IsDebit() {
			totalDebits += tx.Amount
		}
		if !tx.Timestamp.Before(cutoff) {
			recentCount++
			recentNetFlow += tx.SignedAmount()
		}
		if tx.Amount > 10000 {
			largeCount++
		}
		if tx.IsFlagged || (tx.FraudScore != nil && *tx.FraudScore > 70) {
			fraudFlagged = true
		}
	}

	// Debt-to-income: average monthly spending against the income estimate.
	spanMonths := float64(len(txs)) / 30
	if spanMonths < 1 {
		spanMonths = 1
	}
	avgMonthlySpending := totalDebits / spanMonths
	if monthlyIncome > 0 {
		ratio := avgMonthlySpending / monthlyIncome
		if ratio > 0.5 {
			score += 40
			factors = append(factors, "High debt-to-income ratio")
		} else if ratio > 0.3 {
			score += 20
			factors = append(factors, "Moderate debt-to-income ratio")
		}
	}

	if recentCount > 50 {
		score += 25
		factors = append(factors, "High transaction frequency")
	}
	if largeCount > 5 {
		score += 20
		factors = append(factors, "Multiple large transactions")
	}
	if recentNetFlow < -5000 {
		score += 30
		factors = append(factors, "Negative balance trend")
	}
	if fraudFlagged {
		score += 15
		factors = append(factors, "Fraud-flagged transactions")
	}

	if score > 100 {
		score = 100
	}
	if len(factors) == 0 {
		factors = []string{NoRiskFactors}
	}

	return &DefaultRisk{
		Score:       score,
		Level:       riskLevel(score),
		Probability: float64(score) / 100,
		Factors:     factors,
	}
}

func riskLevel(score int) string {
	switch {
	case score >= 70:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}
