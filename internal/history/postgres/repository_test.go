package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/ancillary-hub/ancillary/internal/history"
)

const testID = "0f8fad5b-d9cb-469f-a165-70867728950e"

var historyColumns = []string{
	"interaction_id", "question", "generated_sql", "uses_market_data", "uses_ml_prediction",
	"row_count", "summary", "error_message", "failed_stage", "duration_ms", "created_at",
}

func TestRecordAssignsIDAndReturnsCreatedAt(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	repo.newID = func() string { return testID }
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO interaction_history (interaction_id, question, generated_sql, uses_market_data, uses_ml_prediction, row_count, summary, error_message, failed_stage, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at`)).
		WithArgs(testID, "Spa ROI?", "SELECT 1", true, false, 3, "Up.", "", "", int64(1500)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	entry, err := repo.Record(context.Background(), history.Entry{
		Question:       "Spa ROI?",
		SQL:            "SELECT 1",
		UsesMarketData: true,
		RowCount:       3,
		Summary:        "Up.",
		DurationMS:     1500,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID != testID {
		t.Fatalf("ID = %q", entry.ID)
	}
	if !entry.CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt = %v, want %v", entry.CreatedAt, now)
	}
	assertSQLMock(t, mock)
}

func TestRecordRejectsMalformedID(t *testing.T) {
	db, mock := newSQLMock(t)
	_, err := NewRepository(db).Record(context.Background(), history.Entry{ID: "not-a-uuid"})
	if err == nil {
		t.Fatal("expected error for malformed id")
	}
	assertSQLMock(t, mock)
}

func TestListClampsLimitAndScansRows(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT `+selectColumns+`
FROM interaction_history
ORDER BY created_at DESC, interaction_id ASC
LIMIT $1`)).
		WithArgs(history.DefaultListLimit).
		WillReturnRows(sqlmock.NewRows(historyColumns).
			AddRow(testID, "Spa ROI?", "", false, false, 0, "", "SQL Generation Error: boom", "sql_generation", int64(20), now))

	entries, err := repo.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].FailedStage != "sql_generation" {
		t.Fatalf("FailedStage = %q", entries[0].FailedStage)
	}
	if entries[0].DurationMS != 20 {
		t.Fatalf("DurationMS = %d", entries[0].DurationMS)
	}
	assertSQLMock(t, mock)
}

func TestGetReturnsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT `+selectColumns+`
FROM interaction_history
WHERE interaction_id = $1`)).
		WithArgs(testID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), testID)
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, history.ErrNotFound)
	}
	assertSQLMock(t, mock)
}

func TestGetTreatsMalformedIDAsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	_, err := NewRepository(db).Get(context.Background(), "../etc")
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, history.ErrNotFound)
	}
	assertSQLMock(t, mock)
}

func TestGetWrapsDriverErrors(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery("FROM interaction_history").
		WithArgs(testID).
		WillReturnError(errors.New("connection reset"))

	_, err := NewRepository(db).Get(context.Background(), testID)
	if err == nil || errors.Is(err, history.ErrNotFound) {
		t.Fatalf("error = %v, want wrapped driver error", err)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
