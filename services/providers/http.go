package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxResponseBytes caps how much of an upstream reply is read
const maxResponseBytes = 16 << 20

// HTTPClient performs the single JSON POST every adapter needs
type HTTPClient struct {
	client  *http.Client
	headers map[string]string
}

// NewHTTPClient creates an HTTPClient from the common provider config
func NewHTTPClient(config ProviderConfig) *HTTPClient {
	if config.Timeout == 0 {
		config.Timeout = DefaultProviderConfig().Timeout
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		headers: config.Headers,
	}
}

// RawResponse is an upstream reply before decoding
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the status code is 2xx
func (r *RawResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// PostJSON marshals payload, posts it to url and reads the whole reply.
// The returned error is always a transport-level failure.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, headers map[string]string, payload interface{}) (*RawResponse, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &RawResponse{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}

// ResolveBaseURL picks the request endpoint, then the configured one,
// then the adapter default, without a trailing slash
func ResolveBaseURL(endpoint, configured, fallback string) string {
	for _, candidate := range []string{endpoint, configured, fallback} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return strings.TrimRight(candidate, "/")
		}
	}
	return ""
}
