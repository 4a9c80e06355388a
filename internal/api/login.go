package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/observability"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func handleLogin(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Users.Empty() || deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "LOGIN_NOT_CONFIGURED", "username/password login is not configured", false, nil)
		return
	}

	var request loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid login request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Username) == "" || request.Password == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "CREDENTIALS_REQUIRED", "Missing username or password", false, nil)
		return
	}

	if ok, wait := deps.LoginLimiter.Reserve(request.Username, deps.now()); !ok {
		observability.ObserveLogin(false)
		retryAfter := int(math.Ceil(wait.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeError(r.Context(), w, http.StatusTooManyRequests, "LOGIN_RATE_LIMITED", "Too many login attempts, try again later", true,
			map[string]any{"retry_after_seconds": retryAfter})
		return
	}

	identity, err := deps.Users.Authenticate(request.Username, request.Password)
	if err != nil {
		observability.ObserveLogin(false)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(r.Context(), w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "LOGIN_FAILED", "login failed", true, map[string]any{"details": err.Error()})
		return
	}
	observability.ObserveLogin(true)

	session := deps.Sessions.Issue(identity)
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

func handleVerify(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": "anonymous", "roles": []string{}, "authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity.Subject, "roles": identity.Roles, "authenticated": true})
}
