package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const txColumns = `id, user_id, amount, type, merchant, category, country, location,
	description, fraud_score, is_flagged, explanation, timestamp, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, tx *Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, merchant, category, country,
			location, description, fraud_score, is_flagged, explanation, timestamp, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Merchant, tx.Category, tx.Country,
		tx.Location, tx.Description, tx.FraudScore, tx.IsFlagged, tx.Explanation,
		tx.Timestamp, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+` FROM transactions WHERE id = $1
	`, id)

	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tx, err
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions ORDER BY created_at DESC LIMIT $1
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list user transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *PostgresStore) CountByUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateFraudResult(ctx context.Context, id string, result FraudResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET fraud_score = $2, is_flagged = $3, explanation = $4, updated_at = NOW()
		WHERE id = $1
	`, id, result.Score, result.Flagged, result.Explanation)
	if err != nil {
		return fmt.Errorf("failed to update fraud result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	var tx Transaction
	var merchant, category, country, location, description, explanation sql.NullString
	var fraudScore sql.NullInt64

	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Amount, &tx.Type, &merchant, &category, &country,
		&location, &description, &fraudScore, &tx.IsFlagged, &explanation,
		&tx.Timestamp, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Merchant = merchant.String
	tx.Category = category.String
	tx.Country = country.String
	tx.Location = location.String
	tx.Description = description.String
	tx.Explanation = explanation.String
	if fraudScore.Valid {
		score := int(fraudScore.Int64)
		tx.FraudScore = &score
	}
	return &tx, nil
}

func collectTransactions(rows *sql.Rows) ([]*Transaction, error) {
	defer func() { _ = rows.Close() }()

	var result []*Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}
