package amlcase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusOpen, StatusAssigned, true},
		{StatusOpen, StatusClosed, true},
		{StatusAssigned, StatusClosed, true},
		{StatusAssigned, StatusOpen, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusAssigned, false},
		{StatusOpen, StatusOpen, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func seedCase(t *testing.T, store Store, c *Case) {
	t.Helper()
	if c.Status == "" {
		c.Status = StatusOpen
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	require.NoError(t, store.Create(context.Background(), c))
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seedCase(t, store, &Case{ID: "case_1", UserID: "u1", Title: "Structuring pattern"})

	// open -> assigned records the assignee
	require.NoError(t, store.UpdateStatus(ctx, "case_1", StatusAssigned, "analyst-7"))
	got, err := store.Get(ctx, "case_1")
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, got.Status)
	assert.Equal(t, "analyst-7", got.AssignedTo)

	// assigned -> closed
	require.NoError(t, store.UpdateStatus(ctx, "case_1", StatusClosed, ""))
	got, err = store.Get(ctx, "case_1")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, got.Status)
	assert.Equal(t, "analyst-7", got.AssignedTo, "closing keeps the assignee")

	// closed cases cannot be reopened
	err = store.UpdateStatus(ctx, "case_1", StatusOpen, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = store.UpdateStatus(ctx, "case_missing", StatusClosed, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListNewestFirst(t *testing.T) {
	store := NewMemoryStore()

	base := time.Now()
	seedCase(t, store, &Case{ID: "case_old", UserID: "u1", Title: "a", CreatedAt: base.Add(-time.Hour)})
	seedCase(t, store, &Case{ID: "case_new", UserID: "u1", Title: "b", CreatedAt: base})

	cases, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "case_new", cases[0].ID)
}

func testRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(store).RegisterRoutes(r.Group("/api"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
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
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerCreate(t *testing.T) {
	r := testRouter(NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/api/cases", map[string]any{
		"userId":   "u1",
		"title":    "Rapid cross-border transfers",
		"priority": "high",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Case struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"case"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Case.ID)
	assert.Equal(t, StatusOpen, resp.Case.Status, "new cases open")

	// Title is required
	w = doJSON(t, r, http.MethodPost, "/api/cases", map[string]any{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerUpdateStatus(t *testing.T) {
	store := NewMemoryStore()
	r := testRouter(store)

	seedCase(t, store, &Case{ID: "case_1", UserID: "u1", Title: "t"})

	w := doJSON(t, r, http.MethodPatch, "/api/cases/case_1/status", map[string]any{
		"status":     "assigned",
		"assignedTo": "analyst-7",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// A disallowed transition maps to 409
	w = doJSON(t, r, http.MethodPatch, "/api/cases/case_1/status", map[string]any{"status": "open"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/cases/case_missing/status", map[string]any{"status": "closed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
