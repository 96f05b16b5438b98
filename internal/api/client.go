// Package api provides the HTTP client for the crypto platform REST API:
// authentication, live price snapshots, historical series, and price
// forecasts. All requests carry the bearer credential currently installed
// on the client, mirroring the platform's Authorization contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// APIError is a request the server rejected (4xx/5xx) with a decoded
// {message} body. Transport failures are returned as wrapped errors, not
// as *APIError.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// Client is the platform API client. The bearer token is held in an atomic
// value so that credential changes from the session store never race with
// concurrent in-flight requests: each request reads the value once at send
// time and a change is visible to every request issued afterwards.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      atomic.Value // string; "" when unauthenticated
}

// NewClient creates a platform API client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	c.token.Store("")
	return c
}

// SetToken installs the bearer credential attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token.Store(token)
}

// ClearToken removes the bearer credential; subsequent requests go out
// without an Authorization header.
func (c *Client) ClearToken() {
	c.token.Store("")
}

// AuthHeader derives the outgoing Authorization header set from the current
// credential: {"Authorization": "Bearer <token>"} when one is installed,
// empty otherwise. Recomputed on every call, never cached.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if tok, _ := c.token.Load().(string); tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return h
}

// doJSON issues a request and decodes a JSON response into out (skipped when
// out is nil). Non-2xx responses are decoded into *APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s request: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating %s %s request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range c.AuthHeader() {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var serverMsg struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &serverMsg) == nil {
			apiErr.Message = serverMsg.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
