// Package amlcase holds the AML investigation case model and its stores.
package amlcase

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a case does not exist.
var ErrNotFound = errors.New("case not found")

// ErrInvalidTransition is returned on a disallowed status change.
var ErrInvalidTransition = errors.New("invalid case status transition")

// Case statuses. Cases move open → assigned → closed; reopening a closed
// case is not supported.
const (
	StatusOpen     = "open"
	StatusAssigned = "assigned"
	StatusClosed   = "closed"
)

// Case is an AML investigation tied to a user.
type Case struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	Priority    string    `json:"priority,omitempty"` // low, medium, high
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CanTransition reports whether a case may move from one status to another.
func CanTransition(from, to string) bool {
	switch from {
	case StatusOpen:
		return to == StatusAssigned || to == StatusClosed
	case StatusAssigned:
		return to == StatusClosed
	default:
		return false
	}
}

// Store persists cases.
type Store interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, id string) (*Case, error)
	List(ctx context.Context, limit int) ([]*Case, error)
	UpdateStatus(ctx context.Context, id, status, assignedTo string) error
}
