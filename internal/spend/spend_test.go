package spend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayKey(t *testing.T) {
	ts := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-06-01", DayKey(ts))

	// Keyed on the UTC calendar day regardless of local zone
	est := time.FixedZone("EST", -5*60*60)
	assert.Equal(t, "2024-06-02", DayKey(time.Date(2024, 6, 1, 23, 30, 0, 0, est)))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	total, err := s.Get(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, s.Add(ctx, "2024-06-01", 0.25))
	require.NoError(t, s.Add(ctx, "2024-06-01", 0.50))
	require.NoError(t, s.Add(ctx, "2024-06-02", 1.00))

	total, err = s.Get(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, total, 1e-9)
}

func TestMemoryStoreConcurrentAdds(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Add(ctx, "2024-06-01", 0.01)
		}()
	}
	wg.Wait()

	total, err := s.Get(ctx, "2024-06-01")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestUpstashStoreGet(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"result":"1.5"}`))
	}))
	defer server.Close()

	s := NewUpstashStore(server.URL, "token-123")
	total, err := s.Get(context.Background(), "2024-06-01")
	require.NoError(t, err)

	assert.InDelta(t, 1.5, total, 1e-9)
	assert.Equal(t, "/get/cost:2024-06-01", gotPath)
	assert.Equal(t, "Bearer token-123", gotAuth)
}

func TestUpstashStoreGetMissingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":null}`))
	}))
	defer server.Close()

	s := NewUpstashStore(server.URL, "token")
	total, err := s.Get(context.Background(), "2024-06-01")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpstashStoreAdd(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"0.75"}`))
	}))
	defer server.Close()

	s := NewUpstashStore(server.URL, "token")
	require.NoError(t, s.Add(context.Background(), "2024-06-01", 0.75))

	require.Len(t, paths, 2)
	assert.Equal(t, "/incrbyfloat/cost:2024-06-01/0.75", paths[0])
	assert.Equal(t, "/expire/cost:2024-06-01/604800", paths[1])
}

func TestUpstashStoreErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	s := NewUpstashStore(server.URL, "bad-token")
	_, err := s.Get(context.Background(), "2024-06-01")
	assert.Error(t, err)
}
