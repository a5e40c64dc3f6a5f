package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ancillary-hub/ancillary/internal/history"
)

const selectColumns = `interaction_id, question, generated_sql, uses_market_data, uses_ml_prediction, row_count, summary, error_message, failed_stage, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type Repository struct {
	db    *sql.DB
	newID func() string
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, newID: func() string { return uuid.NewString() }}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

// Record stores entry under a fresh id, unless one is already set, and
// returns it with the database timestamp.
func (r *Repository) Record(ctx context.Context, entry history.Entry) (history.Entry, error) {
	if entry.ID == "" {
		entry.ID = r.newID()
	} else if _, err := uuid.Parse(entry.ID); err != nil {
		return history.Entry{}, fmt.Errorf("record interaction: invalid id %q", entry.ID)
	}

	query := `
INSERT INTO interaction_history (interaction_id, question, generated_sql, uses_market_data, uses_ml_prediction, row_count, summary, error_message, failed_stage, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.Question,
		entry.SQL,
		entry.UsesMarketData,
		entry.UsesMLPrediction,
		entry.RowCount,
		entry.Summary,
		entry.Error,
		entry.FailedStage,
		entry.DurationMS,
	).Scan(&entry.CreatedAt); err != nil {
		return history.Entry{}, fmt.Errorf("record interaction: %w", err)
	}
	return entry, nil
}

// List returns the newest interactions first.
func (r *Repository) List(ctx context.Context, limit int) ([]history.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+selectColumns+`
FROM interaction_history
ORDER BY created_at DESC, interaction_id ASC
LIMIT $1`, history.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction rows: %w", err)
	}
	return entries, nil
}

func (r *Repository) Get(ctx context.Context, id string) (history.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return history.Entry{}, history.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+selectColumns+`
FROM interaction_history
WHERE interaction_id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return history.Entry{}, history.ErrNotFound
		}
		return history.Entry{}, fmt.Errorf("get interaction: %w", err)
	}
	return entry, nil
}

func scanEntry(row rowScanner) (history.Entry, error) {
	var entry history.Entry
	if err := row.Scan(
		&entry.ID,
		&entry.Question,
		&entry.SQL,
		&entry.UsesMarketData,
		&entry.UsesMLPrediction,
		&entry.RowCount,
		&entry.Summary,
		&entry.Error,
		&entry.FailedStage,
		&entry.DurationMS,
		&entry.CreatedAt,
	); err != nil {
		return history.Entry{}, err
	}
	return entry, nil
}
