package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/querydesk/querydesk/internal/audit"
	"github.com/querydesk/querydesk/internal/auth"
)

const defaultAuditLimit = 50

func handleListAudit(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !auditReady(deps, w, r) {
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}

	records, err := deps.Audit.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "AUDIT_ERROR", "failed to list audit records", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func handleGetAudit(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if !auditReady(deps, w, r) {
		return
	}

	record, err := deps.Audit.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "AUDIT_RECORD_NOT_FOUND", "audit record was not found", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "AUDIT_ERROR", "failed to load audit record", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func auditReady(deps Dependencies, w http.ResponseWriter, r *http.Request) bool {
	if deps.Audit == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "AUDIT_NOT_CONFIGURED", "audit log is not configured", false, nil)
		return false
	}
	if err := requireRole(r, auth.RoleOpsAdmin); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return false
	}
	return true
}
