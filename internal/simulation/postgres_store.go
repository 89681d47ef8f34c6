package simulation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists simulations in PostgreSQL. Metrics live in a
// companion table linked 1:1 and are written together with completion.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed simulation store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const simColumns = `s.id, s.name, s.type, s.status, s.input_data, s.output_data,
	m.accuracy, m.loss, m.duration, s.created_at, s.updated_at`

const simFrom = ` FROM simulations s LEFT JOIN simulation_metrics m ON m.simulation_id = s.id `

func (s *PostgresStore) Create(ctx context.Context, sim *Simulation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulations (id, name, type, status, input_data, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
	`, sim.ID, sim.Name, sim.Type, sim.Status, []byte(sim.Input), sim.CreatedAt, sim.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create simulation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Simulation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+simColumns+simFrom+`WHERE s.id = $1`, id)
	sim, err := scanSimulation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sim, err
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]*Simulation, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+simColumns+simFrom+`ORDER BY s.created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		result = append(result, sim)
	}
	return result, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id, status string) error {
	// Fetch first so the forward-only rule matches the in-memory store.
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(current.Status, status) {
		return ErrInvalidTransition
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE simulations SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update simulation status: %w", err)
	}
	return nil
}

func (s *PostgresStore) Complete(ctx context.Context, id string, output json.RawMessage, metrics Metrics) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(current.Status, StatusCompleted) {
		return ErrInvalidTransition
	}

	// Output and metrics land in one transaction so a completed run is never
	// observed without its metrics.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin completion: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE simulations SET status = $2, output_data = $3, updated_at = NOW() WHERE id = $1
	`, id, StatusCompleted, []byte(output))
	if err != nil {
		return fmt.Errorf("failed to complete simulation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO simulation_metrics (simulation_id, accuracy, loss, duration)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (simulation_id) DO UPDATE
		SET accuracy = EXCLUDED.accuracy, loss = EXCLUDED.loss, duration = EXCLUDED.duration
	`, id, metrics.Accuracy, metrics.Loss, metrics.Duration)
	if err != nil {
		return fmt.Errorf("failed to record simulation metrics: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM simulations`)
	if err != nil {
		return fmt.Errorf("failed to delete simulations: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (*Simulation, error) {
	var sim Simulation
	var name sql.NullString
	var input, output []byte
	var accuracy, loss, duration sql.NullFloat64

	err := row.Scan(
		&sim.ID, &name, &sim.Type, &sim.Status, &input, &output,
		&accuracy, &loss, &duration, &sim.CreatedAt, &sim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sim.Name = name.String
	sim.Input = input
	sim.Output = output
	if accuracy.Valid {
		sim.Metrics = &Metrics{
			Accuracy: accuracy.Float64,
			Loss:     loss.Float64,
			Duration: duration.Float64,
		}
	}
	return &sim, nil
}
