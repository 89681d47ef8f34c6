package fraud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/finsights/internal/alert"
	"github.com/mbd888/finsights/internal/idgen"
	"github.com/mbd888/finsights/internal/metrics"
	"github.com/mbd888/finsights/internal/mlclient"
	"github.com/mbd888/finsights/internal/realtime"
	"github.com/mbd888/finsights/internal/traces"
	"github.com/mbd888/finsights/internal/transaction"
)

// frequencyWindow is the trailing window used for the frequency signal.
const frequencyWindow = 24 * time.Hour

// historyLimit caps how many prior transactions are sent as model context.
const historyLimit = 50

// Service orchestrates fraud scanning: it scores transactions, writes the
// results back, and raises at most one fraud alert per flagged transaction.
type Service struct {
	engine *Engine
	txs    transaction.Store
	alerts alert.Store
	hub    *realtime.Hub
	logger *slog.Logger
}

// NewService creates a fraud scanning service. hub may be nil when realtime
// streaming is disabled.
func NewService(engine *Engine, txs transaction.Store, alerts alert.Store, hub *realtime.Hub, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, txs: txs, alerts: alerts, hub: hub, logger: logger}
}

// ScanResult summarizes one scanned transaction.
type ScanResult struct {
	TransactionID   string   `json:"transactionId"`
	UserID          string   `json:"userId"`
	Score           int      `json:"score"`
	Fraudulent      bool     `json:"fraudulent"`
	RiskLevel       string   `json:"riskLevel"`
	Recommendations []string `json:"recommendations"`
}

// ScanTransaction scores a single stored transaction, persists the outcome,
// and raises an alert when the transaction is flagged.
func (s *Service) ScanTransaction(ctx context.Context, txID string) (*ScanResult, error) {
	tx, err := s.txs.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	return s.scan(ctx, tx)
}

// ScanUser scores every stored transaction belonging to a user.
func (s *Service) ScanUser(ctx context.Context, userID string) ([]*ScanResult, error) {
	txs, err := s.txs.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	return s.scanAll(ctx, txs)
}

// ScanAll scores every stored transaction.
func (s *Service) ScanAll(ctx context.Context) ([]*ScanResult, error) {
	txs, err := s.txs.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	return s.scanAll(ctx, txs)
}

func (s *Service) scanAll(ctx context.Context, txs []*transaction.Transaction) ([]*ScanResult, error) {
	results := make([]*ScanResult, 0, len(txs))
	for _, tx := range txs {
		res, err := s.scan(ctx, tx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction %s: %w", tx.ID, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) scan(ctx context.Context, tx *transaction.Transaction) (*ScanResult, error) {
	ctx, span := traces.StartSpan(ctx, "fraud.scan",
		traces.TransactionID(tx.ID),
		traces.UserID(tx.UserID),
	)
	defer span.End()

	frequency, err := s.txs.CountByUserSince(ctx, tx.UserID, time.Now().Add(-frequencyWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent transactions: %w", err)
	}

	history, err := s.userHistory(ctx, tx.UserID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.engine.Analyze(ctx, inputForTransaction(tx, frequency), history)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(traces.FraudScore(assessment.Score), traces.RiskLevel(assessment.RiskLevel))

	explanation := ""
	if assessment.Fraudulent {
		explanation = fmt.Sprintf("score %d (%s risk)", assessment.Score, assessment.RiskLevel)
	}
	if err := s.txs.UpdateFraudResult(ctx, tx.ID, transaction.FraudResult{
		Score:       assessment.Score,
		Flagged:     assessment.Fraudulent,
		Explanation: explanation,
	}); err != nil {
		return nil, fmt.Errorf("failed to record fraud result: %w", err)
	}

	if assessment.Fraudulent {
		metrics.FraudScansTotal.WithLabelValues("flagged").Inc()
		if err := s.raiseAlert(ctx, tx, assessment); err != nil {
			return nil, err
		}
	} else {
		metrics.FraudScansTotal.WithLabelValues("clean").Inc()
	}

	return &ScanResult{
		TransactionID:   tx.ID,
		UserID:          tx.UserID,
		Score:           assessment.Score,
		Fraudulent:      assessment.Fraudulent,
		RiskLevel:       assessment.RiskLevel,
		Recommendations: assessment.Recommendations,
	}, nil
}

// raiseAlert creates the fraud alert for a flagged transaction, unless one
// already exists.
func (s *Service) raiseAlert(ctx context.Context, tx *transaction.Transaction, assessment *Assessment) error {
	if _, err := s.alerts.FindByTransaction(ctx, tx.ID, alert.TypeFraud); err == nil {
		return nil // already alerted
	} else if !errors.Is(err, alert.ErrNotFound) {
		return fmt.Errorf("failed to check existing alert: %w", err)
	}

	severity := alert.SeverityMedium
	if assessment.RiskLevel == RiskHigh {
		severity = alert.SeverityHigh
	}

	a := &alert.Alert{
		ID:            idgen.WithPrefix("alr_"),
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Type:          alert.TypeFraud,
		Message:       fmt.Sprintf("Suspicious transaction of $%.2f flagged with fraud score %d", tx.Amount, assessment.Score),
		Severity:      severity,
		Status:        alert.StatusOpen,
		CreatedAt:     time.Now(),
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return fmt.Errorf("failed to create fraud alert: %w", err)
	}
	metrics.AlertsCreatedTotal.WithLabelValues(severity).Inc()

	s.logger.Info("fraud alert raised",
		"alertId", a.ID,
		"transactionId", tx.ID,
		"userId", tx.UserID,
		"score", assessment.Score,
		"severity", severity,
	)

	if s.hub != nil {
		s.hub.BroadcastAlert(map[string]interface{}{
			"id":            a.ID,
			"userId":        a.UserID,
			"transactionId": a.TransactionID,
			"message":       a.Message,
			"severity":      a.Severity,
			"score":         assessment.Score,
		})
	}
	return nil
}

// ExplainTransaction produces ranked contributing factors for a stored
// transaction.
func (s *Service) ExplainTransaction(ctx context.Context, txID string) ([]FeatureContribution, error) {
	tx, err := s.txs.Get(ctx, txID)
	if err != nil {
		return nil, err
	}

	frequency, err := s.txs.CountByUserSince(ctx, tx.UserID, time.Now().Add(-frequencyWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent transactions: %w", err)
	}

	recent, err := s.txs.ListByUser(ctx, tx.UserID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}

	var total float64
	count := 0
	for _, prior := range recent {
		if prior.ID == tx.ID {
			continue
		}
		total += prior.Amount
		count++
	}
	avg := 0.0
	if count > 0 {
		avg = total / float64(count)
	}

	features, err := s.engine.Explain(ctx, inputForTransaction(tx, frequency), count, avg, toHistory(recent))
	if err != nil {
		return nil, err
	}
	if len(features) == 0 {
		features = s.fallbackExplanation(tx)
	}
	return features, nil
}

// fallbackExplanation covers transactions where no explanation rule triggers:
// it reuses the explanation persisted by the last scan when one exists,
// otherwise it surfaces the score-derived recommendations.
func (s *Service) fallbackExplanation(tx *transaction.Transaction) []FeatureContribution {
	score := 0
	if tx.FraudScore != nil {
		score = *tx.FraudScore
	}
	policy := s.engine.Policy()

	if tx.Explanation != "" {
		return []FeatureContribution{{
			Feature:      "Prior Scan Explanation",
			Contribution: score,
			Description:  tx.Explanation,
			Impact:       policy.RiskLevel(score),
		}}
	}

	recs := policy.Recommendations(score)
	features := make([]FeatureContribution, 0, len(recs))
	for _, rec := range recs {
		features = append(features, FeatureContribution{
			Feature:      "Score-Derived Recommendation",
			Contribution: score,
			Description:  rec,
			Impact:       policy.RiskLevel(score),
		})
	}
	return features
}

func (s *Service) userHistory(ctx context.Context, userID string) ([]mlclient.HistoryEntry, error) {
	recent, err := s.txs.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load user history: %w", err)
	}
	return toHistory(recent), nil
}

func inputForTransaction(tx *transaction.Transaction, frequency int) Input {
	return Input{
		Amount:      tx.Amount,
		Location:    tx.Country,
		Type:        tx.Type,
		Description: tx.Description,
		Frequency:   frequency,
	}
}

func toHistory(txs []*transaction.Transaction) []mlclient.HistoryEntry {
	history := make([]mlclient.HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		history = append(history, mlclient.HistoryEntry{
			Amount:    tx.Amount,
			Type:      tx.Type,
			Country:   tx.Country,
			Timestamp: tx.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return history
}
