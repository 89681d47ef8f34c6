package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/finsights/internal/transaction"
)

func tx(amount float64, txType string, age time.Duration) *transaction.Transaction {
	return &transaction.Transaction{
		Amount:    amount,
		Type:      txType,
		Timestamp: time.Now().Add(-age),
	}
}

func TestEstimateLocally_Sentinel(t *testing.T) {
	risk := estimateLocally(nil, 5000, time.Now())

	assert.Equal(t, 0, risk.Score)
	assert.Equal(t, RiskLow, risk.Level)
	assert.Equal(t, 0.0, risk.Probability)
	assert.Equal(t, []string{NoRiskFactors}, risk.Factors)
}

func TestEstimateLocally_SentinelWithBenignHistory(t *testing.T) {
	txs := []*transaction.Transaction{
		tx(100, "debit", time.Hour),
		tx(2000, "credit", 48*time.Hour),
	}
	risk := estimateLocally(txs, 5000, time.Now())

	assert.Equal(t, 0, risk.Score)
	assert.Equal(t, []string{NoRiskFactors}, risk.Factors)
}

func TestEstimateLocally_HighDebtRatio(t *testing.T) {
	// 3000 spent over a sub-month history against 5000 income: ratio 0.6.
	txs := []*transaction.Transaction{
		tx(1500, "debit", time.Hour),
		tx(1500, "withdrawal", 2*time.Hour),
		tx(1500, "credit", 3*time.Hour),
	}
	risk := estimateLocally(txs, 5000, time.Now())

	assert.Equal(t, 40, risk.Score)
	assert.Contains(t, risk.Factors, "High debt-to-income ratio")
	assert.Equal(t, RiskMedium, risk.Level)
}

func TestEstimateLocally_ModerateDebtRatio(t *testing.T) {
	// 2000 spent against 5000 income: ratio 0.4.
	txs := []*transaction.Transaction{
		tx(2000, "debit", time.Hour),
		tx(2000, "credit", 2*time.Hour),
	}
	risk := estimateLocally(txs, 5000, time.Now())

	assert.Equal(t, 20, risk.Score)
	assert.Contains(t, risk.Factors, "Moderate debt-to-income ratio")
}

func TestEstimateLocally_ZeroIncomeSkipsRatio(t *testing.T) {
	txs := []*transaction.Transaction{
		tx(4000, "debit", time.Hour),
	}
	risk := estimateLocally(txs, 0, time.Now())

	for _, f := range risk.Factors {
		assert.NotContains(t, f, "debt-to-income")
	}
}

func TestEstimateLocally_HighFrequency(t *testing.T) {
	var txs []*transaction.Transaction
	for i := 0; i < 51; i++ {
		txs = append(txs, tx(10, "credit", time.Duration(i)*time.Hour))
	}
	risk := estimateLocally(txs, 100000, time.Now())

	assert.Contains(t, risk.Factors, "High transaction frequency")
}

func TestEstimateLocally_MultipleLargeTransactions(t *testing.T) {
	var txs []*transaction.Transaction
	for i := 0; i < 6; i++ {
		txs = append(txs, tx(15000, "credit", time.Duration(i)*time.Hour))
	}
	risk := estimateLocally(txs, 1e9, time.Now())

	assert.Contains(t, risk.Factors, "Multiple large transactions")
}

func TestEstimateLocally_NegativeBalanceTrend(t *testing.T) {
	txs := []*transaction.Transaction{
		tx(6000, "withdrawal", 24*time.Hour),
		tx(500, "credit", 48*time.Hour),
	}
	risk := estimateLocally(txs, 1e9, time.Now())

	assert.Contains(t, risk.Factors, "Negative balance trend")
}

func TestEstimateLocally_OldDebitsOutsideTrendWindow(t *testing.T) {
	// A big debit 40 days ago counts toward the debt ratio but not the trend.
	txs := []*transaction.Transaction{
		tx(6000, "withdrawal", 40*24*time.Hour),
	}
	risk := estimateLocally(txs, 1e9, time.Now())

	assert.NotContains(t, risk.Factors, "Negative balance trend")
}

func TestEstimateLocally_FraudFlagged(t *testing.T) {
	flagged := tx(100, "debit", time.Hour)
	flagged.IsFlagged = true
	risk := estimateLocally([]*transaction.Transaction{flagged}, 1e9, time.Now())
	assert.Contains(t, risk.Factors, "Fraud-flagged transactions")

	score := 80
	scored := tx(100, "debit", time.Hour)
	scored.FraudScore = &score
	risk = estimateLocally([]*transaction.Transaction{scored}, 1e9, time.Now())
	assert.Contains(t, risk.Factors, "Fraud-flagged transactions")

	low := 40
	clean := tx(100, "debit", time.Hour)
	clean.FraudScore = &low
	risk = estimateLocally([]*transaction.Transaction{clean}, 1e9, time.Now())
	assert.NotContains(t, risk.Factors, "Fraud-flagged transactions")
}

func TestEstimateLocally_ScoreCappedAndBands(t *testing.T) {
	// Trip every rule at once.
	var txs []*transaction.Transaction
	for i := 0; i < 60; i++ {
		txs = append(txs, tx(15000, "withdrawal", time.Duration(i)*time.Hour))
	}
	txs[0].IsFlagged = true

	risk := estimateLocally(txs, 1000, time.Now())
	assert.Equal(t, 100, risk.Score)
	assert.Equal(t, RiskHigh, risk.Level)
	assert.Equal(t, 1.0, risk.Probability)
	require.NotEmpty(t, risk.Factors)
	assert.NotContains(t, risk.Factors, NoRiskFactors)
}

func TestEstimateLocally_LevelBoundaries(t *testing.T) {
	assert.Equal(t, RiskLow, riskLevel(29))
	assert.Equal(t, RiskMedium, riskLevel(30))
	assert.Equal(t, RiskMedium, riskLevel(69))
	assert.Equal(t, RiskHigh, riskLevel(70))
}

func TestEstimateDefaultRisk_FallbackWhenNoClient(t *testing.T) {
	g := testGenerator(nil)

	risk, err := g.EstimateDefaultRisk(context.Background(), "u1", nil, 5000)
	require.NoError(t, err)
	assert.Equal(t, []string{NoRiskFactors}, risk.Factors)
}
