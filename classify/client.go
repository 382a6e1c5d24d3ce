package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/use-agent/truthlens/models"
)

// Client posts page content to the classification endpoint.
// One request per call; failures are never retried.
type Client struct {
	endpoint   string
	httpClient *http.Client
	header     http.Header
}

// NewClient creates a Client for the given endpoint URL.
// Pass nil to use a default http.Client; deadlines come from the ctx.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, httpClient: httpClient, header: http.Header{}}
}

// SetHeader adds a header sent with every request, e.g. X-API-Key.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Predict sends {header, body} and decodes {label, percentage, explanation}.
// Every failure is reported as a BACKEND_OFFLINE *models.Error.
func (c *Client) Predict(ctx context.Context, content *models.PageContent) (*models.ClassificationResult, error) {
	body, err := json.Marshal(content)
	if err != nil {
		return nil, models.NewError(models.ErrCodeBackendOffline, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, models.NewError(models.ErrCodeBackendOffline, "create request", err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewError(models.ErrCodeBackendOffline, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, models.NewError(models.ErrCodeBackendOffline, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewError(models.ErrCodeBackendOffline,
			fmt.Sprintf("endpoint returned status %d", resp.StatusCode), nil)
	}

	var result models.ClassificationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, models.NewError(models.ErrCodeBackendOffline, "decode response", err)
	}
	if result.Label == "" {
		return nil, models.NewError(models.ErrCodeBackendOffline, "response has no label", nil)
	}

	return &result, nil
}
