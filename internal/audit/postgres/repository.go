package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/querydesk/querydesk/internal/audit"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping audit db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, record audit.Record) error {
	record = record.Normalize(r.now())
	query := `
INSERT INTO query_audit (audit_id, trace_id, principal, operation_kind, query_text, entity, operation, sql_text, success, error_text, row_count, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.TraceID,
		record.Principal,
		string(record.Kind),
		record.QueryText,
		record.Entity,
		record.Operation,
		record.SQL,
		record.Success,
		record.Error,
		record.RowCount,
		record.DurationMs,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (r *Repository) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT audit_id, trace_id, principal, operation_kind, query_text, entity, operation, sql_text, success, error_text, row_count, duration_ms, created_at
FROM query_audit
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	records := make([]audit.Record, 0, limit)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

func (r *Repository) Get(ctx context.Context, id string) (audit.Record, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT audit_id, trace_id, principal, operation_kind, query_text, entity, operation, sql_text, success, error_text, row_count, duration_ms, created_at
FROM query_audit
WHERE audit_id = $1`, id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return audit.Record{}, audit.ErrNotFound
		}
		return audit.Record{}, fmt.Errorf("get audit record: %w", err)
	}
	return record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (audit.Record, error) {
	var (
		record audit.Record
		kind   string
	)
	if err := row.Scan(
		&record.ID,
		&record.TraceID,
		&record.Principal,
		&kind,
		&record.QueryText,
		&record.Entity,
		&record.Operation,
		&record.SQL,
		&record.Success,
		&record.Error,
		&record.RowCount,
		&record.DurationMs,
		&record.CreatedAt,
	); err != nil {
		return audit.Record{}, err
	}
	record.Kind = audit.Kind(kind)
	return record, nil
}
