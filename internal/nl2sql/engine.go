package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/querydesk/querydesk/internal/observability"
	"github.com/querydesk/querydesk/internal/query"
)

const (
	tracerName = "github.com/querydesk/querydesk/internal/nl2sql"
)

const (
	msgValid          = "The query is valid and can be executed successfully."
	msgSyntaxFailure  = "The query failed to execute. There may be an issue with the SQL syntax."
	msgExecuteFailure = "Failed to execute query"
)

var ErrEmptyQuery = errors.New("query text is required")

var errNoStore = errors.New("no storage engine configured")

// Engine ties classification and plan generation to a storage engine. The
// zero value translates and explains; validation and execution need Store.
type Engine struct {
	Store query.Engine
	// Now supplies the reference instant for relative periods. Nil means the
	// wall clock.
	Now func() time.Time
	// StoreTimeout bounds each storage call. Zero leaves the caller's
	// deadline in place.
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

func NewEngine(store query.Engine, logger *slog.Logger) *Engine {
	return &Engine{Store: store, Logger: logger}
}

// ProcessQuery classifies text and builds its plan.
func (e *Engine) ProcessQuery(ctx context.Context, text string) (Plan, error) {
	if strings.TrimSpace(text) == "" {
		return Plan{}, ErrEmptyQuery
	}
	_, span := otel.Tracer(tracerName).Start(ctx, "nl2sql.process_query")
	defer span.End()

	classification := Classify(text, e.now())
	plan := PlanFor(classification)

	span.SetAttributes(
		attribute.String("querydesk.entity", string(plan.Entity)),
		attribute.String("querydesk.operation", string(plan.Operation)),
		attribute.String("querydesk.rule", classification.Rule),
		attribute.Int("querydesk.conditions", len(plan.Conditions)),
	)
	observability.ObserveClassification(string(plan.Entity), string(plan.Operation), classification.Rule)
	e.logger().DebugContext(ctx, "query classified",
		slog.String("entity", string(plan.Entity)),
		slog.String("operation", string(plan.Operation)),
		slog.String("rule", classification.Rule),
		slog.String("sql", plan.SQL),
	)
	return plan, nil
}

func (e *Engine) ExplainQuery(plan Plan) Explanation {
	return Explain(plan)
}

// ValidateQuery checks the plan's vocabulary and dry-runs its SQL. Nothing the
// dry run does is kept.
func (e *Engine) ValidateQuery(ctx context.Context, plan Plan) ValidationResult {
	if !plan.Entity.Valid() {
		return ValidationResult{
			Error: fmt.Sprintf("Entity '%s' does not exist. Valid entities are: %s", plan.Entity, joinEntities()),
		}
	}
	if !plan.Operation.Valid() {
		return ValidationResult{
			Error: fmt.Sprintf("Operation '%s' is not supported. Valid operations are: %s", plan.Operation, joinOperations()),
		}
	}

	_, err := e.runStore(ctx, "validate", plan, true)
	if err != nil {
		var statementErr *query.StatementError
		if errors.As(err, &statementErr) {
			return ValidationResult{Error: msgSyntaxFailure}
		}
		return ValidationResult{Error: "Error executing query: " + err.Error()}
	}
	return ValidationResult{Valid: true, Message: msgValid}
}

// ExecuteQuery runs the plan's SQL. Failures are reported in the result, never
// returned.
func (e *Engine) ExecuteQuery(ctx context.Context, plan Plan) ExecutionResult {
	result, err := e.runStore(ctx, "execute", plan, false)
	if err != nil {
		if errors.Is(err, errNoStore) {
			return ExecutionResult{Error: msgExecuteFailure}
		}
		return ExecutionResult{Error: "Error executing query: " + storageMessage(err)}
	}
	if !result.Read {
		affected := result.AffectedRows
		return ExecutionResult{Success: true, AffectedRows: &affected}
	}
	return ExecutionResult{Success: true, Rows: rowsFromResult(result.Columns, result.Rows)}
}

func (e *Engine) runStore(ctx context.Context, kind string, plan Plan, dryRun bool) (query.Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "nl2sql."+kind)
	defer span.End()
	span.SetAttributes(
		attribute.String("querydesk.entity", string(plan.Entity)),
		attribute.String("querydesk.operation", string(plan.Operation)),
		attribute.Bool("querydesk.dry_run", dryRun),
	)

	if e.Store == nil {
		span.SetStatus(codes.Error, errNoStore.Error())
		return query.Result{}, errNoStore
	}

	storeCtx := ctx
	if e.StoreTimeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, e.StoreTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := e.Store.Execute(storeCtx, query.Request{SQL: plan.SQL, DryRun: dryRun})
	observability.ObserveStoreCall(kind, err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger().WarnContext(ctx, "storage call failed",
			slog.String("kind", kind),
			slog.String("sql", plan.SQL),
			slog.Any("error", err),
		)
		return query.Result{}, err
	}
	span.SetAttributes(
		attribute.Int("querydesk.rows", len(result.Rows)),
		attribute.Int64("querydesk.affected_rows", result.AffectedRows),
	)
	return result, nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// storageMessage prefers the engine's own wording over the wrapper's.
func storageMessage(err error) string {
	var statementErr *query.StatementError
	if errors.As(err, &statementErr) && statementErr.Err != nil {
		return statementErr.Err.Error()
	}
	return err.Error()
}

func joinEntities() string {
	names := make([]string, 0, len(Entities))
	for _, entity := range Entities {
		names = append(names, string(entity))
	}
	return strings.Join(names, ", ")
}

func joinOperations() string {
	names := make([]string, 0, len(Operations))
	for _, operation := range Operations {
		names = append(names, string(operation))
	}
	return strings.Join(names, ", ")
}
