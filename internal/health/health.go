// Package health provides a registry of named subsystem health checkers.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status represents the health of a single subsystem.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Checker is a function that checks the health of a subsystem.
type Checker func(ctx context.Context) Status

// Registry holds named health checkers and runs them on demand.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates a new health check registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds a named health checker. Registering the same name twice
// replaces the earlier checker.
func (r *Registry) Register(name string, check Checker) {
	r.mu.Lock()
	r.checkers[name] = check
	r.mu.Unlock()
}

// CheckAll runs all registered checkers and returns the aggregate health
// status plus individual subsystem results, sorted by name.
func (r *Registry) CheckAll(ctx context.Context) (healthy bool, statuses []Status) {
	r.mu.RLock()
	names := make([]string, 0, len(r.checkers))
	checkers := make(map[string]Checker, len(r.checkers))
	for name, check := range r.checkers {
		names = append(names, name)
		checkers[name] = check
	}
	r.mu.RUnlock()

	sort.Strings(names)

	healthy = true
	statuses = make([]Status, 0, len(names))

	for _, name := range names {
		start := time.Now()
		status := checkers[name](ctx)
		status.Name = name
		status.Latency = time.Since(start).Round(time.Microsecond).String()
		if !status.Healthy {
			healthy = false
		}
		statuses = append(statuses, status)
	}

	return healthy, statuses
}
