package amlcase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresStore persists cases in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed case store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caseColumns = `id, user_id, title, description, status, assigned_to, priority, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *Case) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, user_id, title, description, status, assigned_to, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`, c.ID, c.UserID, c.Title, c.Description, c.Status, c.AssignedTo, c.Priority, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Case, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status, assignedTo string) error {
	// Fetch first so the transition rule is enforced consistently with the
	// in-memory store.
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(current.Status, status) {
		return ErrInvalidTransition
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE cases
		SET status = $2, assigned_to = COALESCE(NULLIF($3, ''), assigned_to), updated_at = NOW()
		WHERE id = $1
	`, id, status, assignedTo)
	if err != nil {
		return fmt.Errorf("failed to update case status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*Case, error) {
	var c Case
	var description, assignedTo, priority sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &description, &c.Status, &assignedTo, &priority, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.AssignedTo = assignedTo.String
	c.Priority = priority.String
	return &c, nil
}
