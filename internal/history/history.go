// Package history records question pipeline runs for later review.
package history

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("interaction not found")

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// Entry is one answered (or failed) question. FailedStage is empty for runs
// that completed.
type Entry struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	SQL              string    `json:"sql"`
	UsesMarketData   bool      `json:"uses_market_data"`
	UsesMLPrediction bool      `json:"uses_ml_prediction"`
	RowCount         int       `json:"row_count"`
	Summary          string    `json:"summary"`
	Error            string    `json:"error,omitempty"`
	FailedStage      string    `json:"failed_stage,omitempty"`
	DurationMS       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

type Store interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
}

// ClampLimit maps non-positive limits to the default and caps large ones.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
