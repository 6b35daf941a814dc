// Package api is the client for the Arrival.Space REST API: presigned file
// uploads with async job polling, and space entity management.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const apiPrefix = "/api/v1"

// Client calls the platform REST API with bearer authentication.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// PollInterval/PollTimeout govern async upload job polling.
	// Zero values mean the 2s/120s defaults.
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// New creates a client for the given server and API key.
func New(server, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(server, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// do performs one authenticated JSON API call. path is relative to /api/v1
// unless it is already absolute (poll URLs can be either).
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	u := path
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		if !strings.HasPrefix(u, apiPrefix) {
			u = apiPrefix + u
		}
		u = c.BaseURL + u
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("api: %s %s: %d: %s", method, path, resp.StatusCode, serverMessage(resp.Body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("api: %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// serverMessage extracts a human-readable error from a failed response body,
// preferring the server's own message field.
func serverMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 8192))

	var shape struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &shape); err == nil {
		if shape.Message != "" {
			return shape.Message
		}
		if shape.Error != "" {
			return shape.Error
		}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "(no response body)"
	}
	return msg
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
