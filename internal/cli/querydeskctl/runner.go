// Package querydeskctl implements the command-line client for the QueryDesk API.
package querydeskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// exitInvalid is returned by validate when the server judges the question
// not executable, and by ask when execution fails.
const exitInvalid = 3

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
)

type Options struct {
	BaseURL    string
	APIKey     string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type client struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
	stdout  io.Writer
	stderr  io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := NewRootCommand(defaults, stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			_, _ = fmt.Fprintln(stderr, exit.err)
		}
		return exit.code
	}
	_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
	_, _ = fmt.Fprint(stderr, root.UsageString())
	return 2
}

func NewRootCommand(defaults Options, stdout, stderr io.Writer) *cobra.Command {
	c := &client{stdout: stdout, stderr: stderr}
	var timeout time.Duration
	var noColor bool

	root := &cobra.Command{
		Use:           "querydeskctl",
		Short:         "Ask the QueryDesk API questions about customers, products and sales",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if noColor {
				color.NoColor = true
			}
			c.baseURL = strings.TrimRight(c.baseURL, "/")
			c.http = defaults.HTTPClient
			if c.http == nil {
				c.http = &http.Client{Timeout: timeout}
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return errors.New("a command is required")
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "QueryDesk API base URL")
	flags.StringVar(&c.apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	flags.StringVar(&c.token, "token", defaults.Token, "session token from the login command")
	flags.DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored verdicts")

	root.AddCommand(
		getCommand(c, "health", "GET /v1/health", "/v1/health"),
		getCommand(c, "ready", "GET /v1/ready", "/v1/ready"),
		getCommand(c, "index", "GET /v1", "/v1"),
		getCommand(c, "verify", "GET /v1/auth/verify", "/v1/auth/verify"),
		loginCommand(c),
		questionCommand(c, "ask", "POST /v1/query", "/v1/query", executionVerdict),
		questionCommand(c, "explain", "POST /v1/explain", "/v1/explain", nil),
		questionCommand(c, "validate", "POST /v1/validate", "/v1/validate", validationVerdict),
		auditCommand(c),
	)
	return root
}

func getCommand(c *client, use, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := c.call(cmd.Context(), http.MethodGet, path, nil)
			return err
		},
	}
}

func loginCommand(c *client) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "POST /v1/auth/login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := c.call(cmd.Context(), http.MethodPost, "/v1/auth/login", map[string]string{
				"username": username,
				"password": password,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account name")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// verdictFunc reads a response body and reports whether it describes a
// passing outcome. ok is false when the body carries no verdict.
type verdictFunc func(body []byte) (pass bool, detail string, ok bool)

func questionCommand(c *client, use, short, path string, verdict verdictFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <question>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.call(cmd.Context(), http.MethodPost, path, map[string]string{
				"query": strings.Join(args, " "),
			})
			if err != nil || verdict == nil {
				return err
			}
			pass, detail, ok := verdict(body)
			if !ok {
				return nil
			}
			if pass {
				_, _ = passColor.Fprintf(c.stderr, "PASS %s\n", detail)
				return nil
			}
			_, _ = failColor.Fprintf(c.stderr, "FAIL %s\n", detail)
			return &exitError{code: exitInvalid}
		},
	}
}

func validationVerdict(body []byte) (bool, string, bool) {
	var response struct {
		Validation *struct {
			Valid   bool   `json:"valid"`
			Message string `json:"message"`
			Error   string `json:"error"`
		} `json:"validation"`
	}
	if err := json.Unmarshal(body, &response); err != nil || response.Validation == nil {
		return false, "", false
	}
	if response.Validation.Valid {
		return true, response.Validation.Message, true
	}
	return false, response.Validation.Error, true
}

func executionVerdict(body []byte) (bool, string, bool) {
	var response struct {
		Results *struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &response); err != nil || response.Results == nil {
		return false, "", false
	}
	if response.Results.Success {
		return true, "query executed", true
	}
	return false, response.Results.Error, true
}

func auditCommand(c *client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "GET /v1/audit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/v1/audit"
			if limit > 0 {
				path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
			}
			_, err := c.call(cmd.Context(), http.MethodGet, path, nil)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records")
	return cmd
}

// call sends the request, prints the response body to stdout and returns it.
func (c *client) call(ctx context.Context, method, path string, payload any) ([]byte, error) {
	code, responseBody, err := c.doRequest(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, &exitError{code: 1, err: fmt.Errorf("request failed: %w", err)}
	}
	if code >= 400 {
		return nil, &exitError{code: 1, err: fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(responseBody)))}
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
	} else if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(responseBody))
	}
	return responseBody, nil
}

func (c *client) doRequest(ctx context.Context, method, endpoint string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := strings.TrimSpace(c.apiKey); key != "" {
		req.Header.Set("X-API-Key", key)
	}
	if token := strings.TrimSpace(c.token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
