package spend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// UpstashStore implements Store over the Upstash Redis REST API, so the
// daily total is shared across instances and survives process restarts.
// Keys are given a multi-day expiry for auditability.
type UpstashStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewUpstashStore creates a spend store backed by Upstash Redis REST
func NewUpstashStore(baseURL, token string) *UpstashStore {
	return &UpstashStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// upstashResponse represents a single-command REST response
type upstashResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

func (s *UpstashStore) Get(ctx context.Context, day string) (float64, error) {
	raw, err := s.command(ctx, "get", costKey(day))
	if err != nil {
		return 0, err
	}

	// GET on a missing key returns a null result
	var val *string
	if err := json.Unmarshal(raw, &val); err != nil {
		return 0, fmt.Errorf("failed to parse redis GET result: %w", err)
	}
	if val == nil {
		return 0, nil
	}

	total, err := strconv.ParseFloat(*val, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected value for %s: %q", costKey(day), *val)
	}
	return total, nil
}

func (s *UpstashStore) Add(ctx context.Context, day string, amount float64) error {
	key := costKey(day)
	if _, err := s.command(ctx, "incrbyfloat", key, strconv.FormatFloat(amount, 'f', -1, 64)); err != nil {
		return err
	}

	// Best-effort expiry so old day keys age out of the store
	expiry := strconv.Itoa(RetentionDays * 24 * 60 * 60)
	if _, err := s.command(ctx, "expire", key, expiry); err != nil {
		return fmt.Errorf("failed to set expiry on %s: %w", key, err)
	}
	return nil
}

// command issues a single Redis command through the REST API path form,
// e.g. GET /incrbyfloat/cost:2024-01-01/0.5
func (s *UpstashStore) command(ctx context.Context, parts ...string) (json.RawMessage, error) {
	reqURL := s.baseURL
	for _, p := range parts {
		reqURL += "/" + url.PathEscape(p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach counter store: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read counter store response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("counter store returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed upstashResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse counter store response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("counter store error: %s", parsed.Error)
	}
	return parsed.Result, nil
}

func costKey(day string) string {
	return "cost:" + day
}
