// Package tour drives a running QueryDesk API through a scripted set of
// questions followed by optional generated ones, logging what each route
// answers.
package tour

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Summary struct {
	Asked   int
	Failed  int
	Invalid int
}

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator
	token     string
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type queryResponse struct {
	ParsedQuery json.RawMessage `json:"parsed_query"`
	Results     struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
		Error   string            `json:"error"`
	} `json:"results"`
}

type planSQL struct {
	SQL string `json:"sql"`
}

type explainResponse struct {
	Explanation struct {
		Summary string   `json:"summary"`
		Details []string `json:"details"`
	} `json:"explanation"`
}

type validateResponse struct {
	Validation struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
		Error   string `json:"error"`
	} `json:"validation"`
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	cfg.Interval = interval

	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed),
	}, nil
}

// Run logs in, walks the script and then asks generated questions. Failed
// stops are counted and logged; only login failure or cancellation stop the
// tour early.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	var summary Summary
	if s.cfg.Username != "" {
		if err := s.login(ctx); err != nil {
			return summary, err
		}
	}

	for _, stop := range Script() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		s.visit(ctx, stop, &summary)
	}

	if s.cfg.Generated == 0 {
		return summary, nil
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for asked := 0; s.cfg.Generated < 0 || asked < s.cfg.Generated; asked++ {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case <-ticker.C:
		}
		s.visit(ctx, s.generator.NextQuestion(), &summary)
	}
	return summary, nil
}

func (s *Service) login(ctx context.Context) error {
	var response loginResponse
	status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"username": s.cfg.Username,
		"password": s.cfg.Password,
	}, &response)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("login failed with status %d: %s", status, strings.TrimSpace(string(body)))
	}
	s.token = response.Token
	s.log.Info("demo login succeeded", slog.String("user", s.cfg.Username), slog.Time("expires_at", response.ExpiresAt))
	return nil
}

func (s *Service) visit(ctx context.Context, stop Stop, summary *Summary) {
	summary.Asked++
	logger := s.log.With(slog.String("stop", stop.Name), slog.String("question", stop.Question))

	var answer queryResponse
	status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/query", map[string]string{"query": stop.Question}, &answer)
	if err != nil || status != http.StatusOK {
		summary.Failed++
		logger.Error("query failed", slog.Int("status", status), slog.String("body", strings.TrimSpace(string(body))), slog.Any("error", err))
		return
	}
	var plan planSQL
	_ = json.Unmarshal(answer.ParsedQuery, &plan)
	logger.Info("query answered",
		slog.String("sql", plan.SQL),
		slog.Bool("success", answer.Results.Success),
		slog.Int("rows", len(answer.Results.Data)),
		slog.String("error", answer.Results.Error),
	)

	planPayload := map[string]json.RawMessage{"parsed_query": answer.ParsedQuery}

	var explained explainResponse
	status, body, err = s.doJSON(ctx, http.MethodPost, "/v1/explain", planPayload, &explained)
	if err != nil || status != http.StatusOK {
		summary.Failed++
		logger.Error("explain failed", slog.Int("status", status), slog.String("body", strings.TrimSpace(string(body))), slog.Any("error", err))
		return
	}
	logger.Info("query explained",
		slog.String("summary", explained.Explanation.Summary),
		slog.Any("details", explained.Explanation.Details),
	)

	var validated validateResponse
	status, body, err = s.doJSON(ctx, http.MethodPost, "/v1/validate", planPayload, &validated)
	if err != nil || status != http.StatusOK {
		summary.Failed++
		logger.Error("validate failed", slog.Int("status", status), slog.String("body", strings.TrimSpace(string(body))), slog.Any("error", err))
		return
	}
	if !validated.Validation.Valid {
		summary.Invalid++
	}
	logger.Info("query validated",
		slog.Bool("valid", validated.Validation.Valid),
		slog.String("message", validated.Validation.Message),
		slog.String("error", validated.Validation.Error),
	)
}

func (s *Service) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) (int, []byte, error) {
	var payload io.Reader
	if requestBody != nil {
		raw, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	if responseBody != nil && resp.StatusCode < 300 && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, responseBody); err != nil {
			return resp.StatusCode, body, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}
