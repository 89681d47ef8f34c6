// Package transaction holds the transaction record model and its stores.
//
// Amounts are stored as absolute values with a separate type column
// (credit/debit/withdrawal); scoring and aggregation code uses |amount|
// throughout. Fraud fields (fraud_score, is_flagged, explanation) are only
// ever written by the fraud scanning service.
package transaction

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// Transaction is a single money movement owned by a user.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"` // absolute value
	Type        string    `json:"type"`   // "credit", "debit", "withdrawal", ...
	Merchant    string    `json:"merchant,omitempty"`
	Category    string    `json:"category,omitempty"`
	Country     string    `json:"country,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	FraudScore  *int      `json:"fraudScore,omitempty"` // nil until scanned
	IsFlagged   bool      `json:"isFlagged"`
	Explanation string    `json:"explanation,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsDebit reports whether the transaction moves money out of the account.
func (t *Transaction) IsDebit() bool {
	return t.Type == "debit" || t.Type == "withdrawal"
}

// SignedAmount returns the amount with direction applied
// (credits positive, debits negative).
func (t *Transaction) SignedAmount() float64 {
	if t.IsDebit() {
		return -t.Amount
	}
	return t.Amount
}

// FraudResult is the scoring outcome written back onto a transaction.
type FraudResult struct {
	Score       int
	Flagged     bool
	Explanation string
}

// Store persists transactions.
type Store interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context, limit int) ([]*Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
	// CountByUserSince counts a user's transactions created at or after the cutoff.
	CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error)
	// UpdateFraudResult writes the scoring outcome onto an existing record.
	UpdateFraudResult(ctx context.Context, id string, result FraudResult) error
	Delete(ctx context.Context, id string) error
}
