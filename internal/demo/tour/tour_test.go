package tour

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeAPI struct {
	t          *testing.T
	mu         sync.Mutex
	calls      map[string]int
	questions  []string
	failQuery  string
	invalidAll bool
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{t: t, calls: map[string]int{}}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[r.URL.Path]++

	if r.Method != http.MethodPost {
		f.t.Errorf("unexpected method %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/v1/auth/login" && r.Header.Get("Authorization") != "Bearer tok-1" {
		f.t.Errorf("%s Authorization = %q", r.URL.Path, r.Header.Get("Authorization"))
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		f.t.Errorf("decode %s body: %v", r.URL.Path, err)
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/auth/login":
		var username string
		_ = json.Unmarshal(body["username"], &username)
		if username != "admin" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_code":"INVALID_CREDENTIALS","message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-1","expires_at":"2026-01-01T00:00:00Z"}`))
	case "/v1/query":
		var question string
		_ = json.Unmarshal(body["query"], &question)
		f.questions = append(f.questions, question)
		if question == f.failQuery {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error_code":"INTERNAL"}`))
			return
		}
		_, _ = w.Write([]byte(`{"query":"q","parsed_query":{"entity":"products","operation":"count","conditions":[],"sql":"SELECT COUNT(*) FROM products"},"results":{"success":true,"data":[{"COUNT(*)":8}]}}`))
	case "/v1/explain":
		if _, ok := body["parsed_query"]; !ok {
			f.t.Errorf("explain body missing parsed_query")
		}
		_, _ = w.Write([]byte(`{"query":{},"explanation":{"summary":"This query is looking for count data from the products table.","details":["Operation: count"]}}`))
	case "/v1/validate":
		if f.invalidAll {
			_, _ = w.Write([]byte(`{"query":{},"validation":{"valid":false,"error":"bad"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"query":{},"validation":{"valid":true,"message":"ok"}}`))
	default:
		f.t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestService(t *testing.T, server *httptest.Server, mutate func(*Config)) *Service {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIBaseURL = server.URL
	cfg.Seed = 1
	cfg.Interval = time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server.Client())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func TestRunWalksScript(t *testing.T) {
	api := newFakeAPI(t)
	server := httptest.NewServer(api)
	defer server.Close()

	summary, err := newTestService(t, server, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != (Summary{Asked: 4}) {
		t.Fatalf("summary = %+v", summary)
	}
	if api.calls["/v1/auth/login"] != 1 {
		t.Fatalf("login calls = %d", api.calls["/v1/auth/login"])
	}
	for _, path := range []string{"/v1/query", "/v1/explain", "/v1/validate"} {
		if api.calls[path] != 4 {
			t.Fatalf("%s calls = %d, want 4", path, api.calls[path])
		}
	}
	if api.questions[0] != Script()[0].Question {
		t.Fatalf("first question = %q", api.questions[0])
	}
}

func TestRunCountsFailuresAndInvalidPlans(t *testing.T) {
	api := newFakeAPI(t)
	api.failQuery = Script()[1].Question
	api.invalidAll = true
	server := httptest.NewServer(api)
	defer server.Close()

	summary, err := newTestService(t, server, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary != (Summary{Asked: 4, Failed: 1, Invalid: 3}) {
		t.Fatalf("summary = %+v", summary)
	}
	if api.calls["/v1/explain"] != 3 {
		t.Fatalf("explain calls = %d, want 3", api.calls["/v1/explain"])
	}
}

func TestRunAsksGeneratedQuestions(t *testing.T) {
	api := newFakeAPI(t)
	server := httptest.NewServer(api)
	defer server.Close()

	summary, err := newTestService(t, server, func(cfg *Config) { cfg.Generated = 3 }).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Asked != 7 {
		t.Fatalf("Asked = %d, want 7", summary.Asked)
	}

	expected := NewGenerator(1)
	for i, question := range api.questions[4:] {
		if want := expected.NextQuestion().Question; question != want {
			t.Fatalf("generated question %d = %q, want %q", i, question, want)
		}
	}
}

func TestRunStopsOnLoginFailure(t *testing.T) {
	api := newFakeAPI(t)
	server := httptest.NewServer(api)
	defer server.Close()

	_, err := newTestService(t, server, func(cfg *Config) { cfg.Username = "mallory" }).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("Run() error = %v, want login 401", err)
	}
	if api.calls["/v1/query"] != 0 {
		t.Fatalf("query calls = %d, want 0", api.calls["/v1/query"])
	}
}

func TestRunUntilCanceled(t *testing.T) {
	api := newFakeAPI(t)
	server := httptest.NewServer(api)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	summary, err := newTestService(t, server, func(cfg *Config) { cfg.Generated = -1 }).Run(ctx)
	if err == nil {
		t.Fatalf("Run() error = nil, want context error")
	}
	if summary.Asked < 4 {
		t.Fatalf("Asked = %d, want at least the script", summary.Asked)
	}
}

func TestNewServiceRequiresBaseURL(t *testing.T) {
	if _, err := NewService(Config{}, nil, nil); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
