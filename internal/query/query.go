package query

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Request struct {
	SQL string
	// DryRun executes the statement inside a transaction that is always
	// rolled back.
	DryRun bool
}

type Result struct {
	Columns      []string
	Rows         [][]any
	AffectedRows int64
	Read         bool
	Duration     time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}

// StatementError reports a statement the engine refused to run: bad syntax,
// unknown table or column, constraint violation. Other errors returned by an
// Engine are infrastructure failures.
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement rejected: %v", e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// IsRead reports whether a statement returns rows.
func IsRead(sqlText string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT")
}
