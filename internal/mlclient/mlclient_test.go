package mlclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsUnavailable(t *testing.T) {
	var c *Client

	res, err := c.DetectFraud(context.Background(), TransactionFeatures{Amount: 100}, nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	assert.False(t, c.Available(context.Background()))
}

func TestEmptyBaseURLReturnsNil(t *testing.T) {
	assert.Nil(t, New(""))
}

func TestDetectFraud_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fraud/detect", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Transaction TransactionFeatures `json:"transaction"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 60000.0, req.Transaction.Amount)

		json.NewEncoder(w).Encode(FraudDetection{
			Score:           95,
			Fraudulent:      true,
			RiskLevel:       "high",
			Recommendations: []string{"Block transaction"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.DetectFraud(context.Background(), TransactionFeatures{Amount: 60000}, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 95, res.Score)
	assert.True(t, res.Fraudulent)
	assert.Equal(t, "high", res.RiskLevel)
}

func TestDetectFraud_Unreachable(t *testing.T) {
	// Port 1 is never listening; connection refused must yield (nil, nil).
	c := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))

	res, err := c.DetectFraud(context.Background(), TransactionFeatures{Amount: 100}, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestDetectFraud_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(50*time.Millisecond))

	// Timeout is treated identically to unreachable.
	res, err := c.DetectFraud(context.Background(), TransactionFeatures{Amount: 100}, nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestDetectFraud_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "model failure", "detail": "feature vector mismatch"})
	}))
	defer srv.Close()

	c := New(srv.URL)

	// HTTP-level errors are real failures, not fallback triggers.
	res, err := c.DetectFraud(context.Background(), TransactionFeatures{Amount: 100}, nil)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "feature vector mismatch")
}

func TestCalculateDefaultRisk_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/forecast/default-risk", r.URL.Path)
		json.NewEncoder(w).Encode(DefaultRisk{
			Score:       45,
			Level:       "medium",
			Factors:     []string{"High debt-to-income ratio"},
			Probability: 0.45,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.CalculateDefaultRisk(context.Background(), "usr_1", nil, 4000)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "medium", res.Level)
	assert.InDelta(t, 0.45, res.Probability, 1e-9)
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	assert.True(t, c.Available(context.Background()))

	down := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))
	assert.False(t, down.Available(context.Background()))
}
