package shiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the shiki server (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration
}

// Client is an HTTP client for the shiki agent pipeline API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("shiki: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// ListAgents returns every registered agent in registry order.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp agentsResponse
	if err := c.get(ctx, "/v1/agents", &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// ExecuteAgent runs a single agent by id. A failed execution is still a
// nil error: inspect the result's Status and Error fields. A non-nil
// error means the request itself failed (unknown agent, invalid id,
// transport failure).
func (c *Client) ExecuteAgent(ctx context.Context, agentID string) (*ExecutionResult, error) {
	var resp ExecutionResult
	if err := c.post(ctx, "/v1/agents/"+url.PathEscape(agentID)+"/execute", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecuteAll runs every registered agent and returns one result per
// agent, in registry order. Disabled agents are reported as skipped.
func (c *Client) ExecuteAll(ctx context.Context) ([]ExecutionResult, error) {
	var resp executeAllResponse
	if err := c.post(ctx, "/v1/execute", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// EnableAgent enables a previously disabled agent.
func (c *Client) EnableAgent(ctx context.Context, agentID string) (*SetEnabledResponse, error) {
	return c.setEnabled(ctx, agentID, "enable")
}

// DisableAgent disables an agent without removing it from the registry.
func (c *Client) DisableAgent(ctx context.Context, agentID string) (*SetEnabledResponse, error) {
	return c.setEnabled(ctx, agentID, "disable")
}

func (c *Client) setEnabled(ctx context.Context, agentID, action string) (*SetEnabledResponse, error) {
	var resp SetEnabledResponse
	if err := c.post(ctx, "/v1/agents/"+url.PathEscape(agentID)+"/"+action, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecutionsOptions are optional filters for the ListExecutions method.
type ExecutionsOptions struct {
	AgentID string
	Limit   int
}

// ListExecutions returns persisted execution history, newest first.
// Fails with a 404 when the server runs without a history database.
func (c *Client) ListExecutions(ctx context.Context, opts *ExecutionsOptions) ([]Execution, error) {
	params := url.Values{}
	if opts != nil {
		if opts.AgentID != "" {
			params.Set("agent_id", opts.AgentID)
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
	}
	path := "/v1/executions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var resp executionsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Executions, nil
}

// Health reports server liveness and basic registry stats.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var resp Health
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("shiki: create request: %w", err)
	}
	return c.doRequest(req, dest)
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("shiki: marshal request body: %w", err)
		}
		reader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("shiki: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("shiki: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("shiki: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("shiki: decode response envelope: %w", err)
	}

	if envelope.Data == nil {
		return json.Unmarshal(bodyBytes, dest)
	}
	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}
	return apiErr
}
