package queue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdiab/showscribe/internal/model"
)

func TestDispatcherDisabledWithoutEndpoint(t *testing.T) {
	d := NewDispatcher("", "")
	assert.False(t, d.Enabled())

	d = NewDispatcher("https://queue.example.com/publish", "")
	assert.True(t, d.Enabled())
}

func TestDispatch(t *testing.T) {
	var gotAuth string
	var gotPayload model.JobPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, "secret-token")
	err := d.Dispatch(context.Background(), model.JobPayload{
		QueueID:  "job-1",
		Filename: "episode.mp3",
		BlobRef:  "queued/job-1.mp3",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "job-1", gotPayload.QueueID)
	assert.Equal(t, "queued/job-1.mp3", gotPayload.BlobRef)
}

func TestDispatchNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	d := NewDispatcher(server.URL, "")
	err := d.Dispatch(context.Background(), model.JobPayload{QueueID: "job-1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
