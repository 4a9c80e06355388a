package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/audit"
	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/observability"
)

type questionRequest struct {
	Query       *string      `json:"query"`
	ParsedQuery *nl2sql.Plan `json:"parsed_query"`
}

type queryResponse struct {
	Query       string                 `json:"query"`
	ParsedQuery nl2sql.Plan            `json:"parsed_query"`
	Results     nl2sql.ExecutionResult `json:"results"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !queriesReady(deps, w, r) {
		return
	}
	request, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	if request.Query == nil || strings.TrimSpace(*request.Query) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}

	started := deps.now()
	plan, err := deps.Queries.ProcessQuery(r.Context(), *request.Query)
	if err != nil {
		writeProcessError(w, r, err)
		return
	}
	result := deps.Queries.ExecuteQuery(r.Context(), plan)

	recordAudit(deps, r, audit.Record{
		Kind:      audit.KindQuery,
		QueryText: *request.Query,
		Success:   result.Success,
		Error:     result.Error,
		RowCount:  len(result.Rows),
	}, plan, started)

	writeJSON(w, http.StatusOK, queryResponse{
		Query:       *request.Query,
		ParsedQuery: plan,
		Results:     result,
	})
}

func handleExplain(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !queriesReady(deps, w, r) {
		return
	}
	request, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	started := deps.now()
	plan, text, ok := resolvePlan(deps, w, r, request)
	if !ok {
		return
	}

	explanation := deps.Queries.ExplainQuery(plan)
	recordAudit(deps, r, audit.Record{Kind: audit.KindExplain, QueryText: text, Success: true}, plan, started)
	writeJSON(w, http.StatusOK, map[string]any{"explanation": explanation})
}

func handleValidate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !queriesReady(deps, w, r) {
		return
	}
	request, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	started := deps.now()
	plan, text, ok := resolvePlan(deps, w, r, request)
	if !ok {
		return
	}

	validation := deps.Queries.ValidateQuery(r.Context(), plan)
	recordAudit(deps, r, audit.Record{
		Kind:      audit.KindValidate,
		QueryText: text,
		Success:   validation.Valid,
		Error:     validation.Error,
	}, plan, started)
	writeJSON(w, http.StatusOK, map[string]any{"validation": validation})
}

func queriesReady(deps Dependencies, w http.ResponseWriter, r *http.Request) bool {
	if deps.Queries == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return false
	}
	if err := requireRole(r, auth.RoleQueryReader); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return false
	}
	return true
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (questionRequest, bool) {
	var request questionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return questionRequest{}, false
	}
	return request, true
}

// resolvePlan accepts either question text or a plan produced earlier. Text
// wins when both are present.
func resolvePlan(deps Dependencies, w http.ResponseWriter, r *http.Request, request questionRequest) (nl2sql.Plan, string, bool) {
	switch {
	case request.Query != nil:
		if strings.TrimSpace(*request.Query) == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
			return nl2sql.Plan{}, "", false
		}
		plan, err := deps.Queries.ProcessQuery(r.Context(), *request.Query)
		if err != nil {
			writeProcessError(w, r, err)
			return nl2sql.Plan{}, "", false
		}
		return plan, *request.Query, true
	case request.ParsedQuery != nil:
		plan := *request.ParsedQuery
		if plan.Entity == "" && plan.Operation == "" && strings.TrimSpace(plan.SQL) == "" {
			writeError(r.Context(), w, http.StatusBadRequest, "PARSED_QUERY_INVALID", "parsed_query must name an entity and operation", false, nil)
			return nl2sql.Plan{}, "", false
		}
		if strings.TrimSpace(plan.SQL) == "" {
			plan.SQL = nl2sql.Render(plan)
		}
		return plan, "", true
	default:
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query or parsed_query is required", false, nil)
		return nl2sql.Plan{}, "", false
	}
}

func writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, nl2sql.ErrEmptyQuery) {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_REQUIRED", "query is required", false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_PROCESSING_FAILED", "failed to process query", true, map[string]any{"details": err.Error()})
}

// recordAudit stores the record detached from the request context. Failures
// are logged and counted only.
func recordAudit(deps Dependencies, r *http.Request, record audit.Record, plan nl2sql.Plan, started time.Time) {
	if deps.Audit == nil {
		return
	}
	record.TraceID = observability.TraceIDFromContext(r.Context())
	record.Principal = principal(r)
	record.Entity = string(plan.Entity)
	record.Operation = string(plan.Operation)
	record.SQL = plan.SQL
	record.DurationMs = deps.now().Sub(started).Milliseconds()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()
	if err := deps.Audit.Record(ctx, record); err != nil {
		observability.IncrementAuditFailure()
		if deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "audit record failed",
				slog.String("kind", string(record.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}
}
