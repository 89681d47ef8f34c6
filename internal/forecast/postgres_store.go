package forecast

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists forecasts in PostgreSQL. Predictions are stored as a
// JSONB document; they are only ever read back whole.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed forecast store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const forecastColumns = `id, user_id, period, months, predictions, accuracy, model, created_at`

func (s *PostgresStore) Create(ctx context.Context, f *Forecast) error {
	predictions, err := json.Marshal(f.Predictions)
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO forecasts (id, user_id, period, months, predictions, accuracy, model, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
	`, f.ID, f.UserID, f.Period, f.Months, predictions, f.Accuracy, f.Model, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create forecast: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Forecast, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+forecastColumns+` FROM forecasts WHERE id = $1`, id)
	f, err := scanForecast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Forecast, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+forecastColumns+` FROM forecasts
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Forecast
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForecast(row rowScanner) (*Forecast, error) {
	var f Forecast
	var userID sql.NullString
	var predictions []byte

	err := row.Scan(&f.ID, &userID, &f.Period, &f.Months, &predictions, &f.Accuracy, &f.Model, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.UserID = userID.String
	if len(predictions) > 0 {
		if err := json.Unmarshal(predictions, &f.Predictions); err != nil {
			return nil, fmt.Errorf("failed to decode predictions: %w", err)
		}
	}
	return &f, nil
}
