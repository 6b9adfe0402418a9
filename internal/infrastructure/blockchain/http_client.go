package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxErrorBody bounds how much of a failed response ends up in the error text
const maxErrorBody = 512

// jsonClient issues bounded GET requests against public JSON APIs
type jsonClient struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

func newJSONClient(client *http.Client, timeout time.Duration, userAgent string) *jsonClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &jsonClient{http: client, timeout: timeout, userAgent: userAgent}
}

// withTimeout bounds a single external call
func (c *jsonClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// getJSON fetches url and decodes the body into out
func (c *jsonClient) getJSON(ctx context.Context, url string, out interface{}) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSON parse error: %w", err)
	}
	return nil
}
