package simulation

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu   sync.RWMutex
	sims map[string]*Simulation
}

// NewMemoryStore creates an in-memory simulation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sims: make(map[string]*Simulation)}
}

func (s *MemoryStore) Create(ctx context.Context, sim *Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sims[sim.ID] = copySim(sim)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sim, ok := s.sims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySim(sim), nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]*Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Simulation, 0, len(s.sims))
	for _, sim := range s.sims {
		result = append(result, copySim(sim))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, ok := s.sims[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(sim.Status, status) {
		return ErrInvalidTransition
	}
	sim.Status = status
	sim.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, output json.RawMessage, metrics Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, ok := s.sims[id]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(sim.Status, StatusCompleted) {
		return ErrInvalidTransition
	}
	sim.Status = StatusCompleted
	sim.Output = append(json.RawMessage(nil), output...)
	m := metrics
	sim.Metrics = &m
	sim.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sims[id]; !ok {
		return ErrNotFound
	}
	delete(s.sims, id)
	return nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sims = make(map[string]*Simulation)
	return nil
}

func copySim(sim *Simulation) *Simulation {
	cp := *sim
	cp.Input = append(json.RawMessage(nil), sim.Input...)
	cp.Output = append(json.RawMessage(nil), sim.Output...)
	if sim.Metrics != nil {
		m := *sim.Metrics
		cp.Metrics = &m
	}
	return &cp
}
