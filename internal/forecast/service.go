package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/finsights/internal/idgen"
	"github.com/mbd888/finsights/internal/mlclient"
	"github.com/mbd888/finsights/internal/transaction"
	"github.com/mbd888/finsights/internal/user"
)

// historyLimit caps how many prior transactions feed a delegated forecast.
const historyLimit = 100

// Service orchestrates forecast generation: it loads a user's history, runs
// the generator, and persists the outcome.
type Service struct {
	generator *Generator
	store     Store
	txs       transaction.Store
	users     user.Store
	logger    *slog.Logger
}

// NewService creates a forecast service.
func NewService(generator *Generator, store Store, txs transaction.Store, users user.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{generator: generator, store: store, txs: txs, users: users, logger: logger}
}

// Generate produces and persists a forecast for a user. userID may be empty
// for an anonymous projection, which is generated but not tied to a history.
func (s *Service) Generate(ctx context.Context, userID, period string, months int) (*Forecast, error) {
	history, err := s.userHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	f, err := s.generator.Generate(ctx, userID, period, months, history)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, f)
}

// PredictSpending produces a spending projection for a user.
func (s *Service) PredictSpending(ctx context.Context, userID string, months int) (*Forecast, error) {
	history, err := s.userHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	f, err := s.generator.PredictSpending(ctx, userID, months, history)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, f)
}

// PredictIncome produces an income projection for a user.
func (s *Service) PredictIncome(ctx context.Context, userID string, months int) (*Forecast, error) {
	history, err := s.userHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	f, err := s.generator.PredictIncome(ctx, userID, months, history)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, f)
}

// ListByUser returns a user's stored forecasts, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Forecast, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// DefaultRisk estimates a user's default risk from their stored history and
// income estimate.
func (s *Service) DefaultRisk(ctx context.Context, userID string) (*DefaultRisk, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	txs, err := s.txs.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	return s.generator.EstimateDefaultRisk(ctx, userID, txs, u.MonthlyIncome)
}

func (s *Service) persist(ctx context.Context, f *Forecast) (*Forecast, error) {
	f.ID = idgen.WithPrefix("fct_")
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to persist forecast: %w", err)
	}

	s.logger.Info("forecast generated",
		"forecastId", f.ID,
		"userId", f.UserID,
		"period", f.Period,
		"months", f.Months,
		"model", f.Model,
	)
	return f, nil
}

func (s *Service) userHistory(ctx context.Context, userID string) ([]mlclient.HistoryEntry, error) {
	if userID == "" {
		return nil, nil
	}
	txs, err := s.txs.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}

	history := make([]mlclient.HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		history = append(history, mlclient.HistoryEntry{
			Amount:    tx.SignedAmount(),
			Type:      tx.Type,
			Country:   tx.Country,
			Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return history, nil
}
