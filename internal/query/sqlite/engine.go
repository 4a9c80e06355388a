// Package sqlite runs queries against an in-memory SQLite database seeded
// from a dataset snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/querydesk/querydesk/internal/dataset"
	"github.com/querydesk/querydesk/internal/query"
)

type Engine struct {
	*query.SQLDB
}

// Open creates the database and seeds it. The pool holds exactly one
// connection because each SQLite in-memory connection is its own database.
func Open(ctx context.Context, snapshot dataset.Snapshot) (*Engine, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := dataset.Seed(ctx, db, dataset.DialectSQLite, snapshot); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed sqlite: %w", err)
	}
	return &Engine{SQLDB: query.NewSQLDB(db, nil)}, nil
}
