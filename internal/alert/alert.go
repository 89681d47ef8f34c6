// Package alert holds the alert model and its stores.
//
// Alerts are created by the fraud scanning service (type "fraud") and by
// compliance workflows. At most one fraud alert exists per transaction.
package alert

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an alert does not exist.
var ErrNotFound = errors.New("alert not found")

// Alert types.
const (
	TypeFraud = "fraud"
	TypeAML   = "aml"
	TypeKYC   = "kyc"
)

// Severity levels.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Statuses.
const (
	StatusOpen     = "open"
	StatusReviewed = "reviewed"
	StatusClosed   = "closed"
)

// Alert flags a suspicious event for an analyst.
type Alert struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId,omitempty"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	Severity      string    `json:"severity"`
	Status        string    `json:"status"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists alerts.
type Store interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, id string) (*Alert, error)
	List(ctx context.Context, limit int) ([]*Alert, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Alert, error)
	// FindByTransaction returns the alert of the given type for a transaction,
	// or ErrNotFound. Used to dedupe fraud alerts per transaction.
	FindByTransaction(ctx context.Context, transactionID, alertType string) (*Alert, error)
	UpdateStatus(ctx context.Context, id, status string) error
	MarkRead(ctx context.Context, id string) error
}
