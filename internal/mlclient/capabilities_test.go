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

func TestDetectAnomaly_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/fraud/anomaly", r.URL.Path)
		json.NewEncoder(w).Encode(AnomalyResult{
			IsAnomaly:    true,
			AnomalyScore: 0.91,
			Threshold:    0.8,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.DetectAnomaly(context.Background(), TransactionFeatures{Amount: 9000}, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsAnomaly)
	assert.InDelta(t, 0.91, res.AnomalyScore, 1e-9)
}

func TestVerifyKYC_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kyc/verify", r.URL.Path)

		var req struct {
			UserID       string `json:"userId"`
			DocumentType string `json:"documentType"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "usr_1", req.UserID)
		assert.Equal(t, "passport", req.DocumentType)

		json.NewEncoder(w).Encode(map[string]any{
			"verified": true,
			"score":    0.97,
			"checks":   map[string]bool{"documentValid": true, "faceMatch": true},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.VerifyKYC(context.Background(), "usr_1", "passport", "P1234", "", "")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Verified)
	assert.True(t, res.Checks.DocumentValid)
}

func TestVerifyKYC_Unreachable(t *testing.T) {
	// No local fallback exists for KYC; unreachable yields (nil, nil) and the
	// caller reports the verification as unavailable.
	c := New("http://127.0.0.1:1", WithTimeout(200*time.Millisecond))

	res, err := c.VerifyKYC(context.Background(), "usr_1", "passport", "", "", "")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestExtractText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kyc/ocr", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"extractedText": map[string]any{"name": "Alice Example"},
			"confidence":    0.88,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.ExtractText(context.Background(), "base64doc", "passport")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, "Alice Example", res.ExtractedText["name"])
}

func TestMatchFace_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kyc/face-match", r.URL.Path)
		json.NewEncoder(w).Encode(FaceMatch{Success: true, Matched: false, Score: 0.42})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.MatchFace(context.Background(), "base64doc", "base64selfie")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Matched)
	assert.InDelta(t, 0.42, res.Score, 1e-9)
}

func TestSendChatMessage_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat/message", r.URL.Path)

		var req struct {
			Message string `json:"message"`
			UserID  string `json:"userId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "how much did I spend?", req.Message)

		json.NewEncoder(w).Encode(ChatReply{
			Message:   "You spent $1,240 this month.",
			Timestamp: "2026-08-31T12:00:00Z",
			UserID:    req.UserID,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.SendChatMessage(context.Background(), "how much did I spend?", "usr_1", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "You spent $1,240 this month.", res.Message)
}

func TestSendChatMessage_NilClient(t *testing.T) {
	var c *Client

	res, err := c.SendChatMessage(context.Background(), "hi", "", nil)
	require.NoError(t, err)
	assert.Nil(t, res)
}
