package polyclob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// APIClient handles HTTP requests to the CLOB API. Authentication headers
// are supplied by the caller; this layer never parses raw bytes itself
// beyond JSON decoding.
type APIClient struct {
	host   string
	client *http.Client
	logger *zap.Logger
}

// NewAPIClient creates a new API client
func NewAPIClient(host string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		host: host,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// do performs an HTTP request and returns the response body. Non-2xx
// statuses become an *HTTPError carrying method, path, status and body.
func (c *APIClient) do(ctx context.Context, method, path string, headers map[string]string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	url := fmt.Sprintf("%s%s", c.host, path)
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: request failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response body: %w", method, path, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyStr := string(respBody)
		if bodyStr == "" {
			bodyStr = resp.Status
		}
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, &HTTPError{
			Status: resp.StatusCode,
			Method: method,
			Path:   path,
			Body:   bodyStr,
		}
	}

	return respBody, nil
}

// doJSON performs a request and decodes the JSON response into result.
// A nil result discards the body after the status check.
func (c *APIClient) doJSON(ctx context.Context, method, path string, headers map[string]string, body []byte, result interface{}) error {
	respBody, err := c.do(ctx, method, path, headers, body)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		bodyStr := string(respBody)
		if len(bodyStr) > 200 {
			bodyStr = bodyStr[:200] + "..."
		}
		return fmt.Errorf("%s %s: failed to decode JSON response: %w (body: %s)", method, path, err, bodyStr)
	}

	return nil
}
