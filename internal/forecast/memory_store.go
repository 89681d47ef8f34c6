package forecast

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu        sync.RWMutex
	forecasts map[string]*Forecast
}

// NewMemoryStore creates an in-memory forecast store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{forecasts: make(map[string]*Forecast)}
}

func (s *MemoryStore) Create(ctx context.Context, f *Forecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	cp.Predictions = append([]Prediction(nil), f.Predictions...)
	s.forecasts[f.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forecasts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	cp.Predictions = append([]Prediction(nil), f.Predictions...)
	return &cp, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Forecast
	for _, f := range s.forecasts {
		if f.UserID == userID {
			cp := *f
			cp.Predictions = append([]Prediction(nil), f.Predictions...)
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
