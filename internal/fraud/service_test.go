package fraud

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/finsights/internal/alert"
	"github.com/mbd888/finsights/internal/mlclient"
	"github.com/mbd888/finsights/internal/transaction"
)

func testService(ml *mlclient.Client) (*Service, transaction.Store, alert.Store) {
	txs := transaction.NewMemoryStore()
	alerts := alert.NewMemoryStore()
	engine := NewEngine(DefaultPolicy(), ml, slog.Default())
	return NewService(engine, txs, alerts, nil, slog.Default()), txs, alerts
}

func seedTransaction(t *testing.T, txs transaction.Store, tx *transaction.Transaction) {
	t.Helper()
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	require.NoError(t, txs.Create(context.Background(), tx))
}

func TestScanTransaction_CleanFallback(t *testing.T) {
	svc, txs, alerts := testService(nil)
	ctx := context.Background()

	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 50, Type: "debit", Country: "US",
	})

	res, err := svc.ScanTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.False(t, res.Fraudulent)

	// Result persisted onto the transaction.
	tx, err := txs.Get(ctx, "tx1")
	require.NoError(t, err)
	require.NotNil(t, tx.FraudScore)
	assert.Equal(t, 0, *tx.FraudScore)
	assert.False(t, tx.IsFlagged)

	// No alert for a clean transaction.
	got, err := alerts.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScanTransaction_FlaggedRaisesAlert(t *testing.T) {
	svc, txs, alerts := testService(nil)
	ctx := context.Background()

	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 60000, Type: "withdrawal", Country: "RU",
	})

	res, err := svc.ScanTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.True(t, res.Fraudulent)
	assert.Equal(t, RiskHigh, res.RiskLevel)

	tx, err := txs.Get(ctx, "tx1")
	require.NoError(t, err)
	assert.True(t, tx.IsFlagged)

	got, err := alerts.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alert.TypeFraud, got[0].Type)
	assert.Equal(t, alert.SeverityHigh, got[0].Severity)
	assert.Equal(t, "tx1", got[0].TransactionID)
	assert.Equal(t, alert.StatusOpen, got[0].Status)
}

func TestScanTransaction_AlertDeduped(t *testing.T) {
	svc, txs, alerts := testService(nil)
	ctx := context.Background()

	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 60000, Type: "withdrawal", Country: "RU",
	})

	_, err := svc.ScanTransaction(ctx, "tx1")
	require.NoError(t, err)
	_, err = svc.ScanTransaction(ctx, "tx1")
	require.NoError(t, err)

	got, err := alerts.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1, "rescanning must not duplicate the alert")
}

func TestScanTransaction_NotFound(t *testing.T) {
	svc, _, _ := testService(nil)

	_, err := svc.ScanTransaction(context.Background(), "missing")
	assert.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestScanUser_FrequencySignal(t *testing.T) {
	svc, txs, _ := testService(nil)
	ctx := context.Background()

	// Eleven recent transactions push the frequency above the top tier.
	for i := 0; i < 11; i++ {
		seedTransaction(t, txs, &transaction.Transaction{
			ID: "tx" + string(rune('a'+i)), UserID: "u1", Amount: 100, Type: "debit", Country: "US",
		})
	}

	results, err := svc.ScanUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, results, 11)
	for _, res := range results {
		assert.Equal(t, 30, res.Score, "frequency tier alone should score 30")
	}
}

func TestScan_DelegatesToModelService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/fraud/detect", r.URL.Path)
		var req struct {
			Transaction mlclient.TransactionFeatures `json:"transaction"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 42.0, req.Transaction.Amount)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"score": 88, "fraudulent": true, "riskLevel": "high",
			"recommendations": []string{"Block transaction"},
		})
	}))
	defer srv.Close()

	svc, txs, alerts := testService(mlclient.New(srv.URL))
	ctx := context.Background()

	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 42, Type: "debit", Country: "US",
	})

	// Model verdict wins even though the local policy would score this 0.
	res, err := svc.ScanTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, 88, res.Score)
	assert.True(t, res.Fraudulent)
	assert.Equal(t, "high", res.RiskLevel)

	got, err := alerts.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestScan_FallsBackWhenServiceDown(t *testing.T) {
	// Nothing listens here; the connection is refused.
	svc, txs, _ := testService(mlclient.New("http://127.0.0.1:1"))
	ctx := context.Background()

	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 60000, Type: "withdrawal", Country: "RU",
	})

	res, err := svc.ScanTransaction(ctx, "tx1")
	require.NoError(t, err)
	assert.True(t, res.Fraudulent, "local policy must take over when the service is down")
	assert.Equal(t, 100, res.Score)
}

func TestScan_ServiceErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "model crashed"})
	}))
	defer srv.Close()

	svc, txs, _ := testService(mlclient.New(srv.URL))
	ctx := context.Background()

	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 50, Type: "debit", Country: "US",
	})

	_, err := svc.ScanTransaction(ctx, "tx1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestExplainTransaction_Fallback(t *testing.T) {
	svc, txs, _ := testService(nil)
	ctx := context.Background()

	// History establishes a small average so the deviation rule triggers.
	seedTransaction(t, txs, &transaction.Transaction{
		ID: "old1", UserID: "u1", Amount: 100, Type: "debit", Country: "US",
	})
	seedTransaction(t, txs, &transaction.Transaction{
		ID: "old2", UserID: "u1", Amount: 200, Type: "debit", Country: "US",
	})
	seedTransaction(t, txs, &transaction.Transaction{
		ID: "big", UserID: "u1", Amount: 20000, Type: "debit", Country: "FR",
	})

	features, err := svc.ExplainTransaction(ctx, "big")
	require.NoError(t, err)
	require.NotEmpty(t, features)

	names := make([]string, 0, len(features))
	for _, f := range features {
		names = append(names, f.Feature)
	}
	assert.Contains(t, names, "Large Transaction Amount")
	assert.Contains(t, names, "International Transaction")
	assert.Contains(t, names, "Amount Deviation from Pattern")
}

func TestExplainTransaction_NoRuleTriggered_UsesStoredExplanation(t *testing.T) {
	svc, txs, _ := testService(nil)
	ctx := context.Background()

	// Benign transaction: small domestic amount, no frequency, no deviation.
	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 40, Type: "purchase", Country: "US",
	})
	require.NoError(t, txs.UpdateFraudResult(ctx, "tx1", transaction.FraudResult{
		Score:       10,
		Flagged:     false,
		Explanation: "reviewed manually, cleared",
	}))

	features, err := svc.ExplainTransaction(ctx, "tx1")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Prior Scan Explanation", features[0].Feature)
	assert.Equal(t, "reviewed manually, cleared", features[0].Description)
	assert.Equal(t, 10, features[0].Contribution)
}

func TestExplainTransaction_NoRuleTriggered_UsesRecommendations(t *testing.T) {
	svc, txs, _ := testService(nil)
	ctx := context.Background()

	// No stored explanation either, so the score-derived recommendations
	// stand in for the feature list.
	seedTransaction(t, txs, &transaction.Transaction{
		ID: "tx1", UserID: "u1", Amount: 40, Type: "purchase", Country: "US",
	})

	features, err := svc.ExplainTransaction(ctx, "tx1")
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Score-Derived Recommendation", features[0].Feature)
	assert.Equal(t, "Allow transaction", features[0].Description)
	assert.Equal(t, ImpactLow, features[0].Impact)
}
