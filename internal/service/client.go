// Package service is the HTTP client for the simulation backend.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"smcbot-tui/internal/logging"
)

// TokenHeader carries the backend access token.
const TokenHeader = "X-Smcbot-Token"

const DefaultTimeout = 45 * time.Second

// ErrNotFound matches an *APIError with status 404.
var ErrNotFound = errors.New("not found")

type runCreateResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type cancelResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type defaultsResponse struct {
	Defaults map[string]any `json:"defaults"`
}

type runsListResponse struct {
	Runs []RunStatus `json:"runs"`
}

type apiErrorBody struct {
	Error string `json:"error"`
}

// RunStatus is the backend's view of one run.
type RunStatus struct {
	RunID      string         `json:"run_id"`
	Status     string         `json:"status"`
	Progress   float64        `json:"progress"`
	Message    string         `json:"message"`
	Result     map[string]any `json:"result"`
	Error      string         `json:"error"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
	FinishedAt string         `json:"finished_at"`
}

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("api %s %s failed with status %d", e.Method, e.Path, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  logging.Logger
}

// Client talks to the backend's run endpoints.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  logging.Logger
}

func New(opts Options) (*Client, error) {
	baseURL, err := normalizeBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if token := strings.TrimSpace(opts.Token); token != "" {
		client.SetHeader(TokenHeader, token)
	}

	return &Client{http: client, baseURL: baseURL, logger: opts.Logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", fmt.Errorf("backend base url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid backend base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("backend base url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("backend base url must have a host, got %q", raw)
	}
	return raw, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	req := c.http.R().SetContext(ctx)
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	started := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("backend request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("perform request: %w", err)
	}
	c.logger.Debug("backend request",
		"method", method, "path", path, "status", resp.StatusCode(), "took", time.Since(started))

	if resp.IsError() {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode()}
		var body apiErrorBody
		if json.Unmarshal(resp.Body(), &body) == nil {
			apiErr.Message = strings.TrimSpace(body.Error)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) Defaults(ctx context.Context) (map[string]any, error) {
	var response defaultsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/defaults", nil, &response); err != nil {
		return nil, err
	}
	if response.Defaults == nil {
		response.Defaults = map[string]any{}
	}
	return response.Defaults, nil
}

func (c *Client) ListRuns(ctx context.Context) ([]RunStatus, error) {
	var response runsListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/runs", nil, &response); err != nil {
		return nil, err
	}
	return response.Runs, nil
}

func (c *Client) StartRun(ctx context.Context, config map[string]any) (string, error) {
	if config == nil {
		config = map[string]any{}
	}
	var response runCreateResponse
	if err := c.doJSON(ctx, http.MethodPost, "/runs", map[string]any{"config": config}, &response); err != nil {
		return "", err
	}
	if strings.TrimSpace(response.RunID) == "" {
		return "", fmt.Errorf("service did not return a run id")
	}
	return response.RunID, nil
}

// CancelRun asks the backend to stop a run. The effect only shows up in a
// later GetRun.
func (c *Client) CancelRun(ctx context.Context, runID string) error {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	var response cancelResponse
	path := fmt.Sprintf("/runs/%s/cancel", url.PathEscape(runID))
	return c.doJSON(ctx, http.MethodPost, path, map[string]any{}, &response)
}

func (c *Client) GetRun(ctx context.Context, runID string) (*RunStatus, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	var status RunStatus
	path := fmt.Sprintf("/runs/%s", url.PathEscape(runID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	if status.RunID == "" {
		status.RunID = runID
	}
	return &status, nil
}
