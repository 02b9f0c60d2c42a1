// Package workflow invokes a remote Dify-style workflow engine in blocking
// mode and reports every outcome, including transport failures, as a
// uniform envelope instead of an error.
package workflow

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
)

const defaultBaseURL = "https://api.dify.ai"

// Config carries the connection settings for the workflow engine. It is
// passed in at construction; the client reads no ambient state.
type Config struct {
	APIKey     string
	BaseURL    string
	WorkflowID string
	Timeout    time.Duration
}

// Envelope is the uniform result of one invocation. StatusCode 0 marks a
// transport failure and 408 a client-side timeout; JSON then carries an
// {error, message} mapping instead of the engine response.
type Envelope struct {
	StatusCode int
	JSON       any
}

// Runner is the invocation contract consumed by callers.
type Runner interface {
	Run(ctx context.Context, inputs map[string]any, user string) Envelope
}

// Client calls the workflow engine over HTTP.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates the config and constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("DIFY_API_KEY is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type runRequest struct {
	WorkflowID   string         `json:"workflow_id,omitempty"`
	Inputs       map[string]any `json:"inputs"`
	ResponseMode string         `json:"response_mode"`
	User         string         `json:"user"`
}

// Run posts the inputs to the engine and waits for the blocking response.
// With a configured workflow id the path-addressed endpoint is tried
// first; a 404 there triggers exactly one fallback to the generic endpoint
// that embeds the workflow id in the body. There are no further retries
// and no backoff.
func (c *Client) Run(ctx context.Context, inputs map[string]any, user string) Envelope {
	if strings.TrimSpace(user) == "" {
		user = "anonymous"
	}

	if c.cfg.WorkflowID != "" {
		env := c.post(ctx, fmt.Sprintf("%s/v1/workflows/%s/run", c.cfg.BaseURL, c.cfg.WorkflowID), runRequest{
			Inputs:       inputs,
			ResponseMode: "blocking",
			User:         user,
		})
		if env.StatusCode != http.StatusNotFound {
			return env
		}
	}

	workflowID := c.cfg.WorkflowID
	if workflowID == "" {
		if v, ok := inputs["sys.workflow_id"].(string); ok {
			workflowID = v
		}
	}
	return c.post(ctx, c.cfg.BaseURL+"/v1/workflows/run", runRequest{
		WorkflowID:   workflowID,
		Inputs:       inputs,
		ResponseMode: "blocking",
		User:         user,
	})
}

func (c *Client) post(ctx context.Context, url string, body runRequest) Envelope {
	payload, err := json.Marshal(body)
	if err != nil {
		return errorEnvelope(0, "request_error", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errorEnvelope(0, "request_error", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errorEnvelope(http.StatusRequestTimeout, "request_timeout", err)
		}
		return errorEnvelope(0, "request_error", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return errorEnvelope(http.StatusRequestTimeout, "request_timeout", err)
		}
		return errorEnvelope(0, "request_error", err)
	}

	return Envelope{StatusCode: resp.StatusCode, JSON: safeJSON(raw)}
}

// safeJSON decodes the response body, degrading an undecodable body to a
// {raw_text} mapping so extraction can still attempt recovery.
func safeJSON(raw []byte) any {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"raw_text": string(raw)}
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

func errorEnvelope(status int, code string, err error) Envelope {
	return Envelope{
		StatusCode: status,
		JSON: map[string]any{
			"error":   code,
			"message": err.Error(),
		},
	}
}

var _ Runner = (*Client)(nil)
