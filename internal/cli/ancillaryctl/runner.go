// Package ancillaryctl implements the command-line client for the
// ancillary API.
package ancillaryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// client is shared by every subcommand of one Run invocation.
type client struct {
	baseURL  string
	timeout  time.Duration
	http     *http.Client
	jsonMode bool
}

// requestError marks failures that happened after argument parsing, so Run
// can tell them apart from usage errors.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

type apiError struct {
	Status    int
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	TraceID   string `json:"trace_id"`
}

func (e *apiError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("http %d: %s: %s", e.Status, e.ErrorCode, e.Message)
}

// Run executes one command and returns the process exit code: 0 on success,
// 1 when the request or the API fails, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	c := &client{http: defaults.HTTPClient}
	root := newRootCommand(c, defaults)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return 1
		}
		return 2
	}
	return 0
}

func newRootCommand(c *client, defaults Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "ancillaryctl",
		Short:         "Query the Ancillary Intelligence Hub API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if c.http == nil {
				c.http = &http.Client{Timeout: c.timeout}
			}
			c.baseURL = strings.TrimRight(c.baseURL, "/")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Usage()
			return errors.New("a command is required")
		},
	}
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "API base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 30s)")
	root.PersistentFlags().BoolVar(&c.jsonMode, "json", false, "print the raw JSON response")

	root.AddCommand(
		newHealthCommand(c),
		newReadyCommand(c),
		newAskCommand(c),
		newDashboardCommand(c),
		newInsightCommand(c),
		newClassifyCommand(c),
		newAdviseCommand(c),
		newHistoryCommand(c),
	)
	return root
}

// do sends the request and returns the raw body of a 2xx response. Any
// other status is decoded into an apiError.
func (c *client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &requestError{err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return nil, &requestError{err: apiErr}
	}
	return raw, nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	return raw, decode(raw, out)
}

func (c *client) postJSON(ctx context.Context, path string, payload, out any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}
	raw, err := c.do(ctx, http.MethodPost, path, "application/json", body)
	if err != nil {
		return nil, err
	}
	return raw, decode(raw, out)
}

func decode(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &requestError{err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// printJSON writes raw re-indented, or as-is when it is not JSON.
func printJSON(w io.Writer, raw []byte) {
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(w, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(w, string(raw))
	}
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
