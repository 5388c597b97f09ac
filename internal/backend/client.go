// Package backend is the HTTP client for the agent backend's account, scope
// and review endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soyeahso/agentchat/internal/logging"
	"github.com/soyeahso/agentchat/internal/version"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend: HTTP %d", e.Status)
	}
	return fmt.Sprintf("backend: HTTP %d: %s", e.Status, e.Detail)
}

// IsAPIError reports whether err carries a backend status response.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Client talks to the backend's JSON endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// NewClient creates a client for baseURL. A zero timeout defaults to 30s.
func NewClient(baseURL string, timeout time.Duration, log *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.Sub("backend"),
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Message string `json:"message"`
}

// VerifyToken checks a credential token and returns the backend's message.
func (c *Client) VerifyToken(ctx context.Context, token string) (string, error) {
	var resp verifyResponse
	if err := c.post(ctx, "/verify-token", verifyRequest{Token: token}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Organizations lists the organizations visible to token.
func (c *Client) Organizations(ctx context.Context, token string) ([]string, error) {
	var resp struct {
		Organizations []string `json:"organizations"`
	}
	q := url.Values{"token": {token}}
	if err := c.get(ctx, "/organizations", q, &resp); err != nil {
		return nil, err
	}
	return resp.Organizations, nil
}

// Workspaces lists the workspaces of an organization.
func (c *Client) Workspaces(ctx context.Context, token, organization string) ([]string, error) {
	var resp struct {
		Workspaces []string `json:"workspaces"`
	}
	q := url.Values{"token": {token}, "organization": {organization}}
	if err := c.get(ctx, "/workspaces", q, &resp); err != nil {
		return nil, err
	}
	return resp.Workspaces, nil
}

// Projects lists the projects of a workspace.
func (c *Client) Projects(ctx context.Context, token, organization, workspace string) ([]string, error) {
	var resp struct {
		Projects []string `json:"projects"`
	}
	q := url.Values{"token": {token}, "organization": {organization}, "workspace": {workspace}}
	if err := c.get(ctx, "/projects", q, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

type likeRequest struct {
	SessionID string `json:"session_id"`
	Like      bool   `json:"like"`
}

type reviewRequest struct {
	SessionID string `json:"session_id"`
	Review    string `json:"review"`
}

// LikeAgent records a verdict on a single agent answer.
func (c *Client) LikeAgent(ctx context.Context, sessionID string, like bool) error {
	return c.post(ctx, "/update-like-agent", likeRequest{SessionID: sessionID, Like: like}, nil)
}

// LikeSession records a verdict on a whole session.
func (c *Client) LikeSession(ctx context.Context, sessionID string, like bool) error {
	return c.post(ctx, "/update-like-session", likeRequest{SessionID: sessionID, Like: like}, nil)
}

// PublishReview submits free-text feedback for a session.
func (c *Client) PublishReview(ctx context.Context, sessionID, review string) error {
	return c.post(ctx, "/publishreview", reviewRequest{SessionID: sessionID, Review: review}, nil)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", req.URL.Path).Msg("request failed")
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Detail: errorDetail(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// errorDetail extracts {"detail": ...} from an error body. FastAPI-style
// validation errors put a list there; those are returned as raw JSON.
func errorDetail(body []byte) string {
	var shaped struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &shaped); err != nil || len(shaped.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(shaped.Detail, &s); err == nil {
		return s
	}
	return string(shaped.Detail)
}
