package querydeskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method  string
	path    string
	query   string
	apiKey  string
	authz   string
	payload map[string]string
}

func newCapturingServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.apiKey = r.Header.Get("X-API-Key")
		captured.authz = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if len(body) > 0 {
			_ = json.Unmarshal(body, &captured.payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestRunAskCommand(t *testing.T) {
	srv, captured := newCapturingServer(t, http.StatusOK, `{"results":{"success":true,"data":[{"COUNT(*)":3}]}}`)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{
		"--base-url", srv.URL,
		"--api-key", "k1",
		"ask", "How", "many", "products", "are", "in", "Electronics?",
	}, Options{Stdout: &stdout, Stderr: &stderr, Timeout: 2 * time.Second})

	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/v1/query", captured.path)
	assert.Equal(t, "k1", captured.apiKey)
	assert.Equal(t, "How many products are in Electronics?", captured.payload["query"])
	assert.Contains(t, stdout.String(), `"COUNT(*)": 3`)
}

func TestRunExplainAndValidateUseTheirRoutes(t *testing.T) {
	for command, path := range map[string]string{"explain": "/v1/explain", "validate": "/v1/validate"} {
		srv, captured := newCapturingServer(t, http.StatusOK, `{}`)
		code := Run(context.Background(), []string{"--base-url", srv.URL, command, "total sales"}, Options{})
		require.Equal(t, 0, code)
		assert.Equal(t, path, captured.path)
		assert.Equal(t, "total sales", captured.payload["query"])
	}
}

func TestRunPrintsVerdicts(t *testing.T) {
	color.NoColor = true

	cases := []struct {
		command  string
		response string
		code     int
		verdict  string
	}{
		{"validate", `{"validation":{"valid":true,"message":"The query is valid and can be executed successfully."}}`, 0, "PASS The query is valid"},
		{"validate", `{"validation":{"valid":false,"error":"Entity 'suppliers' does not exist."}}`, exitInvalid, "FAIL Entity 'suppliers' does not exist."},
		{"ask", `{"results":{"success":false,"error":"Error executing query: no such table: suppliers"}}`, exitInvalid, "FAIL Error executing query"},
	}
	for _, tc := range cases {
		srv, _ := newCapturingServer(t, http.StatusOK, tc.response)
		var stdout, stderr bytes.Buffer
		code := Run(context.Background(), []string{"--base-url", srv.URL, tc.command, "list suppliers"}, Options{Stdout: &stdout, Stderr: &stderr})
		assert.Equal(t, tc.code, code, "%s %s", tc.command, tc.response)
		assert.Contains(t, stderr.String(), tc.verdict)
		assert.NotContains(t, stdout.String(), "PASS")
		assert.NotContains(t, stderr.String(), "exit status")
	}
}

func TestRunLoginAndTokenFlag(t *testing.T) {
	srv, captured := newCapturingServer(t, http.StatusOK, `{"token":"abc","expires_at":"2024-03-15T11:00:00Z"}`)

	var stdout bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "login", "--username", "admin", "--password", "password"}, Options{Stdout: &stdout})
	require.Equal(t, 0, code)
	assert.Equal(t, "/v1/auth/login", captured.path)
	assert.Equal(t, map[string]string{"username": "admin", "password": "password"}, captured.payload)
	assert.Contains(t, stdout.String(), `"token": "abc"`)

	code = Run(context.Background(), []string{"--base-url", srv.URL, "verify"}, Options{Token: "abc"})
	require.Equal(t, 0, code)
	assert.Equal(t, http.MethodGet, captured.method)
	assert.Equal(t, "Bearer abc", captured.authz)
}

func TestRunAuditLimit(t *testing.T) {
	srv, captured := newCapturingServer(t, http.StatusOK, `{"records":[]}`)
	code := Run(context.Background(), []string{"--base-url", srv.URL + "/", "audit", "--limit", "5"}, Options{})
	require.Equal(t, 0, code)
	assert.Equal(t, "/v1/audit", captured.path)
	assert.Equal(t, "limit=5", captured.query)
}

func TestRunHTTPErrorReturnsOne(t *testing.T) {
	srv, _ := newCapturingServer(t, http.StatusUnauthorized, `{"error_code":"UNAUTHORIZED"}`)

	var stderr bytes.Buffer
	code := Run(context.Background(), []string{"--base-url", srv.URL, "health"}, Options{Stderr: &stderr})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "http 401")
}

func TestRunUsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"unknown-command"},
		{"ask"},
		{"login", "--username", "admin"},
	}
	for _, args := range cases {
		var stderr bytes.Buffer
		code := Run(context.Background(), args, Options{Stderr: &stderr})
		assert.Equal(t, 2, code, "args %v", args)
		assert.True(t, strings.Contains(stderr.String(), "Usage:"), "args %v stderr %s", args, stderr.String())
	}
}
