package migrations

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestLoadMigrationsSortsAndPairsUpDown(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000002_two.up.sql":   {Data: []byte("SELECT 2;")},
		"sql/000002_two.down.sql": {Data: []byte("SELECT -2;")},
		"sql/000001_one.up.sql":   {Data: []byte("SELECT 1;")},
		"sql/000001_one.down.sql": {Data: []byte("SELECT -1;")},
		"sql/README.txt":          {Data: []byte("ignored")},
	}

	items, err := loadMigrations(fsys)
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d", len(items))
	}
	if items[0].Version != 1 || items[1].Version != 2 {
		t.Fatalf("unexpected migration order: %+v", items)
	}
	if items[0].Name != "000001_one" {
		t.Fatalf("Name = %q", items[0].Name)
	}
}

func TestLoadMigrationsErrorsWhenDownMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/000001_one.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := loadMigrations(fsys)
	if err == nil {
		t.Fatal("expected error for missing down migration")
	}
	if !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbeddedHistoryMigration(t *testing.T) {
	body, err := embeddedFS.ReadFile("sql/000001_interaction_history.up.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	sql := string(body)
	for _, snippet := range []string{
		"CREATE TABLE interaction_history",
		"interaction_id UUID PRIMARY KEY",
		"failed_stage TEXT",
		"CREATE INDEX idx_interaction_history_created_at_desc",
	} {
		if !strings.Contains(sql, snippet) {
			t.Fatalf("migration missing required snippet: %s", snippet)
		}
	}
}

func TestUpAppliesOnlyPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	runner := NewRunnerFS(fstest.MapFS{
		"sql/000001_one.up.sql":   {Data: []byte("CREATE TABLE one (id INT)")},
		"sql/000001_one.down.sql": {Data: []byte("DROP TABLE one")},
		"sql/000002_two.up.sql":   {Data: []byte("CREATE TABLE two (id INT)")},
		"sql/000002_two.down.sql": {Data: []byte("DROP TABLE two")},
	})

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ancillary_schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM ancillary_schema_migrations ORDER BY version ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(1)))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE two (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ancillary_schema_migrations (version) VALUES ($1)")).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := runner.Up(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestStatusReportsAppliedFlags(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS ancillary_schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version FROM ancillary_schema_migrations ORDER BY version ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))

	states, err := NewRunner().Status(context.Background(), db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(states) != 1 || states[0].Version != 1 || states[0].Applied {
		t.Fatalf("states = %+v", states)
	}
	if states[0].Name != "000001_interaction_history" {
		t.Fatalf("Name = %q", states[0].Name)
	}
}

func TestDownRefusesBlankDownScript(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	runner := NewRunnerFS(fstest.MapFS{
		"sql/000001_one.up.sql":   {Data: []byte("CREATE TABLE one (id INT)")},
		"sql/000001_one.down.sql": {Data: []byte("  \n")},
	})

	rolledBack, err := runner.Down(context.Background(), db, 1)
	if err == nil {
		t.Fatal("Down() expected error for blank down script")
	}
	if !strings.Contains(err.Error(), "missing down SQL") {
		t.Fatalf("unexpected error: %v", err)
	}
	if rolledBack != 0 {
		t.Fatalf("rolledBack = %d, want 0", rolledBack)
	}
}
