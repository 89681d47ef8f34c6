package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/finsights/internal/idgen"
	"github.com/mbd888/finsights/internal/metrics"
	"github.com/mbd888/finsights/internal/realtime"
	"github.com/mbd888/finsights/internal/traces"
)

// Service drives the simulation lifecycle through the store. Every status
// transition is persisted before processing continues, so an observer never
// sees a completed run without output.
type Service struct {
	processor *Processor
	store     Store
	hub       *realtime.Hub
	logger    *slog.Logger
}

// NewService creates a simulation service. hub may be nil.
func NewService(processor *Processor, store Store, hub *realtime.Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{processor: processor, store: store, hub: hub, logger: logger}
}

// Run executes one simulation end to end and returns the terminal record.
func (s *Service) Run(ctx context.Context, in Input) (*Simulation, error) {
	if in.Data == nil {
		return nil, ErrInvalidInput
	}

	input, err := json.Marshal(in.Data)
	if err != nil {
		return nil, fmt.Errorf("encode simulation input: %w", err)
	}

	now := time.Now()
	sim := &Simulation{
		ID:        idgen.WithPrefix("sim_"),
		Name:      in.Name,
		Type:      in.analysisType(),
		Status:    StatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx, span := traces.StartSpan(ctx, "simulation.run", traces.SimulationID(sim.ID))
	defer span.End()

	if err := s.store.Create(ctx, sim); err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}
	if err := s.store.UpdateStatus(ctx, sim.ID, StatusRunning); err != nil {
		return nil, fmt.Errorf("failed to start simulation: %w", err)
	}
	s.broadcast(sim.ID, StatusRunning)

	res, procErr := s.processor.Process(ctx, in)
	if procErr != nil {
		if err := s.store.UpdateStatus(ctx, sim.ID, StatusFailed); err != nil {
			return nil, fmt.Errorf("failed to mark simulation failed: %w", err)
		}
		metrics.SimulationsTotal.WithLabelValues(StatusFailed).Inc()
		s.broadcast(sim.ID, StatusFailed)
		s.logger.Error("simulation failed", "simulationId", sim.ID, "error", procErr)
		return s.store.Get(ctx, sim.ID)
	}

	if err := s.store.Complete(ctx, sim.ID, res.Output, res.Metrics); err != nil {
		return nil, fmt.Errorf("failed to complete simulation: %w", err)
	}
	metrics.SimulationsTotal.WithLabelValues(StatusCompleted).Inc()
	metrics.SimulationDuration.Observe(res.Metrics.Duration)
	s.broadcast(sim.ID, StatusCompleted)

	s.logger.Info("simulation completed",
		"simulationId", sim.ID,
		"type", sim.Type,
		"accuracy", res.Metrics.Accuracy,
		"duration", res.Metrics.Duration,
	)
	return s.store.Get(ctx, sim.ID)
}

// Get returns one simulation.
func (s *Service) Get(ctx context.Context, id string) (*Simulation, error) {
	return s.store.Get(ctx, id)
}

// List returns simulations, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Simulation, error) {
	return s.store.List(ctx, limit)
}

// AggregateMetrics summarizes all stored runs.
func (s *Service) AggregateMetrics(ctx context.Context) (AggregatedMetrics, error) {
	sims, err := s.store.List(ctx, 0)
	if err != nil {
		return AggregatedMetrics{}, err
	}
	return Aggregate(sims), nil
}

// Delete removes one simulation.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// DeleteAll removes every simulation.
func (s *Service) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAll(ctx)
}

func (s *Service) broadcast(id, status string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastSimulation(map[string]interface{}{
		"id":     id,
		"status": status,
	})
}
