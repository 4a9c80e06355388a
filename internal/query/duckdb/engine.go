// Package duckdb runs queries against an in-memory DuckDB database, seeded
// either from a snapshot in memory or from parquet files in an object store.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
	"golang.org/x/sync/errgroup"

	"github.com/querydesk/querydesk/internal/dataset"
	"github.com/querydesk/querydesk/internal/query"
	"github.com/querydesk/querydesk/internal/storage"
)

type Engine struct {
	*query.SQLDB
}

// Open creates the database and seeds it with snapshot.
func Open(ctx context.Context, snapshot dataset.Snapshot) (*Engine, error) {
	db, err := openDB(ctx)
	if err != nil {
		return nil, err
	}
	if err := dataset.Seed(ctx, db, dataset.DialectDuckDB, snapshot); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed duckdb: %w", err)
	}
	return &Engine{SQLDB: query.NewSQLDB(db, NormalizeLabel)}, nil
}

// OpenParquet creates the database and loads every table straight from the
// snapshot parquet files published under prefix.
func OpenParquet(ctx context.Context, store storage.ObjectReader, prefix string) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}

	workDir, err := os.MkdirTemp("", "querydesk-dataset-")
	if err != nil {
		return nil, fmt.Errorf("create dataset temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	// Tables download concurrently; each goroutine owns one local file.
	localPaths := make(map[string]string, len(dataset.Tables))
	group, groupCtx := errgroup.WithContext(ctx)
	for _, table := range dataset.Tables {
		key, err := storage.BuildTablePath(prefix, table)
		if err != nil {
			return nil, err
		}
		localPath := filepath.Join(workDir, table+".parquet")
		localPaths[table] = localPath
		group.Go(func() error {
			return download(groupCtx, store, key, localPath)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	db, err := openDB(ctx)
	if err != nil {
		return nil, err
	}
	if err := loadParquet(ctx, db, localPaths); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Engine{SQLDB: query.NewSQLDB(db, NormalizeLabel)}, nil
}

// download copies one object into a local file for read_parquet.
func download(ctx context.Context, store storage.ObjectReader, key, localPath string) (err error) {
	reader, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local parquet file %q: %w", localPath, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close local parquet file %q: %w", localPath, closeErr)
		}
	}()

	if _, err := io.Copy(file, reader); err != nil {
		return fmt.Errorf("write local parquet file %q: %w", localPath, err)
	}
	return nil
}

func openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

func loadParquet(ctx context.Context, db *sql.DB, localPaths map[string]string) error {
	statements, err := dataset.Schema(dataset.DialectDuckDB)
	if err != nil {
		return err
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	for _, table := range dataset.Tables {
		columns := quoteIdentList(dataset.Columns[table])
		insertSQL := fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM read_parquet(%s)`,
			quoteIdent(table), columns, columns, quoteString(localPaths[table]))
		if _, err := db.ExecContext(ctx, insertSQL); err != nil {
			return fmt.Errorf("load table %q: %w", table, err)
		}
	}
	return nil
}

var aggregateLabelPattern = regexp.MustCompile(`^(sum|avg|min|max|count)\((.*)\)$`)

// NormalizeLabel rewrites DuckDB's generated aggregate column names to the
// spelling used in the SQL text: count_star() becomes COUNT(*), and
// sum((price * inventory)) becomes SUM(price * inventory).
func NormalizeLabel(label string) string {
	if label == "count_star()" {
		return "COUNT(*)"
	}
	match := aggregateLabelPattern.FindStringSubmatch(label)
	if match == nil {
		return label
	}
	inner := match[2]
	if strings.HasPrefix(inner, "(") && strings.HasSuffix(inner, ")") {
		inner = inner[1 : len(inner)-1]
	}
	return strings.ToUpper(match[1]) + "(" + inner + ")"
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteIdentList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, quoteIdent(value))
	}
	return strings.Join(quoted, ", ")
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
