package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gdiab/showscribe/internal/model"
)

// Dispatcher posts job payloads to an external queue endpoint, which is
// expected to deliver them back through the worker callback route.
type Dispatcher struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewDispatcher creates a dispatch client. An empty endpoint leaves the
// dispatcher disabled and intake falls back to synchronous processing.
func NewDispatcher(endpoint, token string) *Dispatcher {
	return &Dispatcher{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether an endpoint is configured
func (d *Dispatcher) Enabled() bool {
	return d.endpoint != ""
}

// Dispatch hands a payload to the external queue
func (d *Dispatcher) Dispatch(ctx context.Context, payload model.JobPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dispatcher returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
