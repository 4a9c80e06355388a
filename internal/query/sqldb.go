package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLDB runs statements against a database/sql handle. Reads share a lock,
// writes and dry runs hold it exclusively.
type SQLDB struct {
	db      *sql.DB
	mu      sync.RWMutex
	relabel func(string) string
}

// NewSQLDB wraps db. relabel, when set, rewrites driver column labels.
func NewSQLDB(db *sql.DB, relabel func(string) string) *SQLDB {
	return &SQLDB{db: db, relabel: relabel}
}

func (s *SQLDB) DB() *sql.DB { return s.db }

func (s *SQLDB) Close() error { return s.db.Close() }

func (s *SQLDB) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping query engine: %w", err)
	}
	return nil
}

func (s *SQLDB) Execute(ctx context.Context, request Request) (Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return Result{}, &StatementError{SQL: request.SQL, Err: errors.New("sql is required")}
	}

	start := time.Now()
	read := IsRead(sqlText)

	var (
		result Result
		err    error
	)
	switch {
	case request.DryRun:
		s.mu.Lock()
		result, err = s.dryRun(ctx, sqlText, read)
		s.mu.Unlock()
	case read:
		s.mu.RLock()
		result, err = s.query(ctx, s.db, sqlText)
		s.mu.RUnlock()
	default:
		s.mu.Lock()
		result, err = s.exec(ctx, s.db, sqlText)
		s.mu.Unlock()
	}
	if err != nil {
		return Result{}, classifyError(ctx, sqlText, err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (s *SQLDB) dryRun(ctx context.Context, sqlText string, read bool) (Result, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, &engineFailure{op: "begin dry run", err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if read {
		return s.query(ctx, tx, sqlText)
	}
	return s.exec(ctx, tx, sqlText)
}

func (s *SQLDB) query(ctx context.Context, q rowQuerier, sqlText string) (Result, error) {
	rows, err := q.QueryContext(ctx, sqlText)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, &engineFailure{op: "query columns", err: err}
	}
	if s.relabel != nil {
		for i := range columns {
			columns[i] = s.relabel(columns[i])
		}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Result{}, err
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return Result{Columns: columns, Rows: resultRows, Read: true}, nil
}

func (s *SQLDB) exec(ctx context.Context, q rowQuerier, sqlText string) (Result, error) {
	res, err := q.ExecContext(ctx, sqlText)
	if err != nil {
		return Result{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Result{}, &engineFailure{op: "rows affected", err: err}
	}
	return Result{AffectedRows: affected}, nil
}

// engineFailure marks a step of running a statement that failed for reasons
// unrelated to the statement text.
type engineFailure struct {
	op  string
	err error
}

func (e *engineFailure) Error() string { return e.op + ": " + e.err.Error() }

func (e *engineFailure) Unwrap() error { return e.err }

// classifyError separates statements the engine refused from failures of the
// engine itself. Driver errors raised while preparing, stepping or scanning
// are statement errors and keep the driver's wording.
func classifyError(ctx context.Context, sqlText string, err error) error {
	var failure *engineFailure
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("execute query: %w", err)
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, sql.ErrTxDone), errors.Is(err, driver.ErrBadConn):
		return fmt.Errorf("execute query: %w", err)
	case errors.As(err, &failure):
		return failure
	default:
		return &StatementError{SQL: sqlText, Err: err}
	}
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
