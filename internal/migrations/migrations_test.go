package migrations

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

func twoStepFS() fstest.MapFS {
	return fstest.MapFS{
		"sql/000001_one.up.sql":   {Data: []byte("CREATE TABLE one (id INT)")},
		"sql/000001_one.down.sql": {Data: []byte("DROP TABLE one")},
		"sql/000002_two.up.sql":   {Data: []byte("CREATE TABLE two (id INT)")},
		"sql/000002_two.down.sql": {Data: []byte("DROP TABLE two")},
	}
}

func checksumOf(body string) string {
	return migration{UpSQL: body}.checksum()
}

func TestLoadMigrationsPairsFilesByVersion(t *testing.T) {
	fsys := twoStepFS()
	fsys["sql/README.md"] = &fstest.MapFile{Data: []byte("ignored")}

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
	if items[1].Name != "two" || items[1].DownSQL != "DROP TABLE two" {
		t.Fatalf("items[1] = %+v", items[1])
	}
}

func TestLoadMigrationsRejectsBrokenPairs(t *testing.T) {
	cases := map[string]struct {
		fsys fstest.MapFS
		want string
	}{
		"missing down": {
			fsys: fstest.MapFS{"sql/000001_one.up.sql": {Data: []byte("SELECT 1;")}},
			want: "missing down SQL",
		},
		"name mismatch": {
			fsys: fstest.MapFS{
				"sql/000001_one.up.sql":   {Data: []byte("SELECT 1;")},
				"sql/000001_uno.down.sql": {Data: []byte("SELECT -1;")},
			},
			want: "conflicting names",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadMigrations(tc.fsys)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("loadMigrations() error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestEmbeddedAuditMigrations(t *testing.T) {
	items, err := loadMigrations(embeddedFS)
	if err != nil {
		t.Fatalf("loadMigrations(embedded) error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("embedded migrations = %+v", items)
	}

	required := map[string][]string{
		items[0].UpSQL: {"CREATE TABLE query_audit", "audit_id UUID PRIMARY KEY", "CREATE INDEX idx_query_audit_created_at_desc"},
		items[1].UpSQL: {"query_audit_operation_kind_check", "'query', 'explain', 'validate'", "idx_query_audit_trace_id"},
	}
	for body, snippets := range required {
		for _, snippet := range snippets {
			if !strings.Contains(body, snippet) {
				t.Fatalf("migration missing required snippet: %s", snippet)
			}
		}
	}
	if items[0].Name != "query_audit" || items[1].Name != "query_audit_trace" {
		t.Fatalf("names = %q, %q", items[0].Name, items[1].Name)
	}
}

func TestUpAppliesPendingMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	runner := NewRunnerFS(twoStepFS())

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS querydesk_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, checksum FROM querydesk_schema_migrations ORDER BY version ASC").
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).AddRow(int64(1), checksumOf("CREATE TABLE one (id INT)")))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE two \(id INT\)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO querydesk_schema_migrations").
		WithArgs(int64(2), "two", checksumOf("CREATE TABLE two (id INT)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := runner.Up(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}
	if applied != 1 {
		t.Fatalf("Up() applied = %d, want 1", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpRollsBackFailedScript(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	runner := NewRunnerFS(twoStepFS())

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS querydesk_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, checksum FROM querydesk_schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE one \(id INT\)`).WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	applied, err := runner.Up(context.Background(), db, 0)
	if err == nil || !strings.Contains(err.Error(), "apply migration 1_one") {
		t.Fatalf("Up() error = %v", err)
	}
	if applied != 0 {
		t.Fatalf("Up() applied = %d, want 0", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRollsBackLatest(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	runner := NewRunnerFS(twoStepFS())

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS querydesk_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, checksum FROM querydesk_schema_migrations ORDER BY version DESC").
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).
			AddRow(int64(2), checksumOf("CREATE TABLE two (id INT)")).
			AddRow(int64(1), checksumOf("CREATE TABLE one (id INT)")))
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE two").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM querydesk_schema_migrations").WithArgs(int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rolledBack, err := runner.Down(context.Background(), db, 0)
	if err != nil {
		t.Fatalf("Down() error = %v", err)
	}
	if rolledBack != 1 {
		t.Fatalf("Down() rolled back = %d, want 1", rolledBack)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStatusReportsPendingAndDrift(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	fsys := twoStepFS()
	fsys["sql/000003_three.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE three (id INT)")}
	fsys["sql/000003_three.down.sql"] = &fstest.MapFile{Data: []byte("DROP TABLE three")}
	runner := NewRunnerFS(fsys)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS querydesk_schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version, checksum FROM querydesk_schema_migrations ORDER BY version ASC").
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).
			AddRow(int64(1), checksumOf("CREATE TABLE one (id INT)")).
			AddRow(int64(2), checksumOf("CREATE TABLE two (id BIGINT)")))

	status, err := runner.Status(context.Background(), db)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if len(status.Applied) != 2 || status.Applied[1] != 2 {
		t.Fatalf("Applied = %v", status.Applied)
	}
	if len(status.Pending) != 1 || status.Pending[0] != 3 {
		t.Fatalf("Pending = %v", status.Pending)
	}
	if len(status.Drifted) != 1 || status.Drifted[0] != 2 {
		t.Fatalf("Drifted = %v", status.Drifted)
	}
}
