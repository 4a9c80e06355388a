package duckdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/querydesk/querydesk/internal/dataset"
	"github.com/querydesk/querydesk/internal/query"
	"github.com/querydesk/querydesk/internal/storage/memory"
)

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"count_star()":             "COUNT(*)",
		"sum(total_price)":         "SUM(total_price)",
		"sum((price * inventory))": "SUM(price * inventory)",
		"avg(price)":               "AVG(price)",
		"max(total_price)":         "MAX(total_price)",
		"min(price)":               "MIN(price)",
		"name":                     "name",
		"c":                        "c",
	}
	for label, want := range cases {
		if got := NormalizeLabel(label); got != want {
			t.Fatalf("NormalizeLabel(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestExecuteCountUsesSQLLabel(t *testing.T) {
	engine, err := Open(context.Background(), dataset.Builtin())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = engine.Close() }()

	result, err := engine.Execute(context.Background(), query.Request{
		SQL: "SELECT COUNT(*) FROM products WHERE category = 'Electronics'",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "COUNT(*)" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != int64(3) {
		t.Fatalf("Rows = %#v", result.Rows)
	}
}

func TestExecuteSumOfInventoryValue(t *testing.T) {
	engine, err := Open(context.Background(), dataset.Builtin())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = engine.Close() }()

	result, err := engine.Execute(context.Background(), query.Request{SQL: "SELECT SUM(price * inventory) FROM products"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Columns[0] != "SUM(price * inventory)" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if result.Rows[0][0] != float64(223000) {
		t.Fatalf("sum = %#v", result.Rows[0][0])
	}
}

func TestDryRunDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	engine, err := Open(ctx, dataset.Builtin())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = engine.Close() }()

	if _, err := engine.Execute(ctx, query.Request{SQL: "DELETE FROM sales WHERE id > 5", DryRun: true}); err != nil {
		t.Fatalf("Execute(dry run) error = %v", err)
	}
	result, err := engine.Execute(ctx, query.Request{SQL: "SELECT COUNT(*) FROM sales"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Rows[0][0] != int64(10) {
		t.Fatalf("count after dry run = %#v", result.Rows[0][0])
	}
}

func TestExecuteRejectsUnknownColumn(t *testing.T) {
	engine, err := Open(context.Background(), dataset.Builtin())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = engine.Close() }()

	_, err = engine.Execute(context.Background(), query.Request{SQL: "SELECT discount FROM sales"})
	var statementErr *query.StatementError
	if !errors.As(err, &statementErr) {
		t.Fatalf("Execute() error = %v, want StatementError", err)
	}
}

func TestOpenParquetLoadsPublishedSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if _, err := dataset.Publish(ctx, store, "datasets/default", dataset.Builtin(), time.Now()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	engine, err := OpenParquet(ctx, store, "datasets/default")
	if err != nil {
		t.Fatalf("OpenParquet() error = %v", err)
	}
	defer func() { _ = engine.Close() }()

	result, err := engine.Execute(ctx, query.Request{SQL: "SELECT name FROM customers ORDER BY id LIMIT 2;"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 2 || result.Rows[0][0] != "John Doe" || result.Rows[1][0] != "Jane Smith" {
		t.Fatalf("Rows = %#v", result.Rows)
	}
}

func TestOpenParquetMissingSnapshot(t *testing.T) {
	if _, err := OpenParquet(context.Background(), memory.New(), "datasets/none"); err == nil {
		t.Fatal("OpenParquet() expected error for missing snapshot")
	}
}
