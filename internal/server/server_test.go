package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/finsights/internal/config"
	"github.com/mbd888/finsights/internal/logging"
	"github.com/mbd888/finsights/internal/mlclient"
)

func testServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	cfg := &config.Config{
		Port:           "0",
		Env:            "development",
		LogLevel:       "error",
		MLTimeout:      time.Second,
		FraudThreshold: 70,
		HomeCountry:    "US",
		RateLimitRPM:   100000, // Don't rate limit tests
	}

	opts = append([]Option{WithLogger(logging.New("error", "text"))}, opts...)
	srv, err := New(cfg, opts...)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// In-memory mode registers no checkers, so /health is trivially healthy
	w = doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Readiness is only flipped by Run()
	w = doJSON(t, srv, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health/live", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUserLifecycle(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/users", map[string]any{
		"email":         "alice@example.com",
		"name":          "Alice",
		"monthlyIncome": 5000.0,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		User struct {
			ID        string `json:"id"`
			KYCStatus string `json:"kycStatus"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.User.ID)
	assert.Equal(t, "pending", created.User.KYCStatus)

	w = doJSON(t, srv, http.MethodGet, "/api/users/"+created.User.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPatch, "/api/users/"+created.User.ID+"/kyc", map[string]any{
		"status": "approved",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/users/usr_000000000000000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactionCreateScansInline(t *testing.T) {
	srv := testServer(t)

	// An obviously fraudulent transaction: huge withdrawal from abroad
	w := doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"userId":  "usr_test",
		"amount":  60000.0,
		"type":    "withdrawal",
		"country": "RU",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Transaction struct {
			ID         string `json:"id"`
			FraudScore *int   `json:"fraudScore"`
			IsFlagged  bool   `json:"isFlagged"`
		} `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Transaction.FraudScore)
	assert.True(t, created.Transaction.IsFlagged)
	assert.GreaterOrEqual(t, *created.Transaction.FraudScore, 70)

	// The inline scan raised an alert
	w = doJSON(t, srv, http.MethodGet, "/api/users/usr_test/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alerts struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &alerts))
	assert.Equal(t, 1, alerts.Count)
}

func TestTransactionImport(t *testing.T) {
	srv := testServer(t)

	rows := []map[string]any{
		{"userId": "usr_import", "amount": 100.0},
		{"userId": "usr_import", "amount": -250.0},
		{"userId": "", "amount": 50.0}, // Invalid row
	}
	payload, err := json.Marshal(rows)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/import", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var result struct {
		Imported int `json:"imported"`
		Failed   int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Failed)
}

func TestSimulationRun(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/simulations", map[string]any{
		"name": "smoke",
		"data": map[string]any{"data": []float64{1, 2, 3}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Simulation struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"simulation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "completed", created.Simulation.Status)

	w = doJSON(t, srv, http.MethodGet, "/api/simulations/"+created.Simulation.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/simulations/metrics/aggregate", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboard(t *testing.T) {
	srv := testServer(t)

	doJSON(t, srv, http.MethodPost, "/api/users", map[string]any{"email": "bob@example.com"})
	doJSON(t, srv, http.MethodPost, "/api/transactions", map[string]any{
		"userId": "usr_dash", "amount": 120.0,
	})

	w := doJSON(t, srv, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		TotalUsers        int `json:"totalUsers"`
		TotalTransactions int `json:"totalTransactions"`
		WeeklyActivity    []struct {
			Date string `json:"date"`
		} `json:"weeklyActivity"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 1, stats.TotalTransactions)
	assert.Len(t, stats.WeeklyActivity, 7)
}

func TestForecastFallback(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/forecast", map[string]any{
		"userId": "usr_fct",
		"period": "monthly",
		"months": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Forecast struct {
			ID          string `json:"id"`
			Model       string `json:"model"`
			Predictions []any  `json:"predictions"`
		} `json:"forecast"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "fallback-model-v1", created.Forecast.Model)
	assert.Len(t, created.Forecast.Predictions, 30)
}

func TestChatUnavailableWithoutModelService(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{"message": "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Missing message is a client error, not an availability problem
	w = doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatDelegates(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/message", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":   "Your spending is on track this month.",
			"timestamp": "2026-08-31T12:00:00Z",
		})
	}))
	defer stub.Close()

	srv := testServer(t, WithMLClient(mlclient.New(stub.URL)))

	w := doJSON(t, srv, http.MethodPost, "/api/chat", map[string]any{"message": "how am I doing?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reply struct {
			Message string `json:"message"`
		} `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Your spending is on track this month.", resp.Reply.Message)
}

func TestKYCVerifyUpdatesUser(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/kyc/verify", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"verified": true, "score": 0.97})
	}))
	defer stub.Close()

	srv := testServer(t, WithMLClient(mlclient.New(stub.URL)))

	w := doJSON(t, srv, http.MethodPost, "/api/users", map[string]any{"email": "kyc@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, srv, http.MethodPost, "/api/users/"+created.User.ID+"/kyc/verify", map[string]any{
		"documentType": "passport",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		KYCStatus string `json:"kycStatus"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "approved", result.KYCStatus)

	// The verdict is persisted on the user
	w = doJSON(t, srv, http.MethodGet, "/api/users/"+created.User.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched struct {
		User struct {
			KYCStatus string `json:"kycStatus"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "approved", fetched.User.KYCStatus)
}

func TestKYCVerifyUnavailableWithoutModelService(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/users", map[string]any{"email": "pending@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, srv, http.MethodPost, "/api/users/"+created.User.ID+"/kyc/verify", map[string]any{
		"documentType": "passport",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Status must stay pending when verification is unavailable
	w = doJSON(t, srv, http.MethodGet, "/api/users/"+created.User.ID, nil)
	var fetched struct {
		User struct {
			KYCStatus string `json:"kycStatus"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, "pending", fetched.User.KYCStatus)

	// Unknown user is a 404 before any delegation attempt
	w = doJSON(t, srv, http.MethodPost, "/api/users/usr_000000000000000000000000/kyc/verify", map[string]any{
		"documentType": "passport",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInfoEndpoint(t *testing.T) {
	srv := testServer(t)

	w := doJSON(t, srv, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var info struct {
		Name       string `json:"name"`
		Delegation bool   `json:"delegation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "FinSights", info.Name)
	assert.False(t, info.Delegation)
}
