package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mbd888/finsights/internal/alert"
	"github.com/mbd888/finsights/internal/amlcase"
	"github.com/mbd888/finsights/internal/transaction"
	"github.com/mbd888/finsights/internal/user"
)

// recentAlertLimit caps the recent-alert feed on the overview.
const recentAlertLimit = 5

// Stats is the dashboard overview payload.
type Stats struct {
	TotalUsers        int           `json:"totalUsers"`
	KYCApproved       int           `json:"kycApproved"`
	KYCPending        int           `json:"kycPending"`
	TotalTransactions int           `json:"totalTransactions"`
	FlaggedCount      int           `json:"flaggedCount"`
	FraudRate         float64       `json:"fraudRate"`     // flagged / total
	FraudDetected     string        `json:"fraudDetected"` // flagged volume, e.g. "$12.4K"
	OpenCases         int           `json:"openCases"`
	ActiveAlerts      int           `json:"activeAlerts"`
	RecentAlerts      []RecentAlert `json:"recentAlerts"`
	WeeklyActivity    []TimeBucket  `json:"weeklyActivity"`
	GeneratedAt       time.Time     `json:"generatedAt"`
}

// RecentAlert is one row of the overview alert feed.
type RecentAlert struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Age      string `json:"age"` // relative, e.g. "3h ago"
}

// Service computes dashboard analytics across the domain stores.
type Service struct {
	users  user.Store
	txs    transaction.Store
	alerts alert.Store
	cases  amlcase.Store
	cache  *Cache
	logger *slog.Logger
}

// NewService creates a dashboard service. cache may be nil.
func NewService(users user.Store, txs transaction.Store, alerts alert.Store, cases amlcase.Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, txs: txs, alerts: alerts, cases: cases, cache: cache, logger: logger}
}

// Stats assembles the overview, fanning out the store reads concurrently.
// Results are served from the cache when fresh.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}

	var (
		users  []*user.User
		txs    []*transaction.Transaction
		alerts []*alert.Alert
		cases  []*amlcase.Case
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.users.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.txs.List(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		alerts, err = s.alerts.List(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		cases, err = s.cases.List(gctx, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard data: %w", err)
	}

	stats := compute(users, txs, alerts, cases, time.Now())
	s.cache.Set(ctx, stats)
	return stats, nil
}

// compute derives the overview from already-loaded records.
func compute(users []*user.User, txs []*transaction.Transaction, alerts []*alert.Alert, cases []*amlcase.Case, now time.Time) *Stats {
	stats := &Stats{
		TotalUsers:        len(users),
		TotalTransactions: len(txs),
		GeneratedAt:       now,
	}

	for _, u := range users {
		switch u.KYCStatus {
		case user.KYCApproved:
			stats.KYCApproved++
		case user.KYCPending:
			stats.KYCPending++
		}
	}

	var flaggedVolume float64
	for _, tx := range txs {
		if tx.IsFlagged {
			stats.FlaggedCount++
			flaggedVolume += tx.Amount
		}
	}
	if len(txs) > 0 {
		stats.FraudRate = float64(stats.FlaggedCount) / float64(len(txs))
	}
	stats.FraudDetected = formatAmount(flaggedVolume)

	for _, c := range cases {
		if c.Status != amlcase.StatusClosed {
			stats.OpenCases++
		}
	}

	for _, a := range alerts {
		if a.Status == alert.StatusOpen {
			stats.ActiveAlerts++
		}
	}
	stats.RecentAlerts = recentHighSeverity(alerts, now)
	stats.WeeklyActivity = Bucket(txs, alerts, time.Time{})
	return stats
}

// recentHighSeverity returns the newest high-severity fraud alerts with
// human-readable ages. The input is assumed newest-first, as the stores
// return it.
func recentHighSeverity(alerts []*alert.Alert, now time.Time) []RecentAlert {
	var recent []RecentAlert
	for _, a := range alerts {
		if a.Type != alert.TypeFraud || a.Severity != alert.SeverityHigh {
			continue
		}
		recent = append(recent, RecentAlert{
			ID:       a.ID,
			UserID:   a.UserID,
			Message:  a.Message,
			Severity: a.Severity,
			Age:      relativeAge(now.Sub(a.CreatedAt)),
		})
		if len(recent) == recentAlertLimit {
			break
		}
	}
	return recent
}

// formatAmount renders a dollar volume compactly ("$950", "$12.4K", "$1.2M").
func formatAmount(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.1fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// relativeAge renders a duration as "just now", "5m ago", "3h ago", "2d ago".
func relativeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
