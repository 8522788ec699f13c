package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdiab/showscribe/internal/ai"
	"github.com/gdiab/showscribe/internal/audio"
	"github.com/gdiab/showscribe/internal/model"
	"github.com/gdiab/showscribe/internal/queue"
)

type stubGenerator struct {
	calls int
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, transcript string) (*ai.ShowNotes, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if transcript == "" {
		return nil, ai.ErrEmptyTranscript
	}
	return &ai.ShowNotes{
		Title:      "Episode Title",
		Summary:    "Episode summary.",
		Highlights: []string{"First highlight"},
		GuestBio:   "Guest bio.",
		SocialCaptions: ai.SocialCaptions{
			Twitter: "t", Linkedin: "l", Instagram: "i",
		},
		Metadata: ai.Metadata{TotalTokens: 500, CostUSD: 0.05},
	}, nil
}

type stubPipeline struct {
	outcome        *audio.IngestOutcome
	err            error
	materializeErr error
	discarded      []string
	tempDir        string
}

func (s *stubPipeline) IngestFile(_ context.Context, _, _ string, _ int64) (*audio.IngestOutcome, error) {
	return s.outcome, s.err
}

func (s *stubPipeline) IngestURL(_ context.Context, _ string) (*audio.IngestOutcome, error) {
	return s.outcome, s.err
}

func (s *stubPipeline) Process(_ context.Context, _, _ string, _ int64) (*audio.IntakeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.outcome.Result, nil
}

func (s *stubPipeline) MaterializePayload(_ context.Context, payload model.JobPayload) (string, int64, error) {
	if s.materializeErr != nil {
		return "", 0, s.materializeErr
	}
	path := filepath.Join(s.tempDir, payload.QueueID+".mp3")
	if err := os.WriteFile(path, payload.FileData, 0644); err != nil {
		return "", 0, err
	}
	return path, int64(len(payload.FileData)), nil
}

func (s *stubPipeline) DiscardPayload(_ context.Context, payload model.JobPayload) {
	s.discarded = append(s.discarded, payload.BlobRef)
}

type testServer struct {
	router    *gin.Engine
	generator *stubGenerator
	pipeline  *stubPipeline
	jobs      *queue.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	generator := &stubGenerator{}
	pipeline := &stubPipeline{tempDir: t.TempDir()}
	jobs := queue.NewRegistry()

	r := gin.New()
	NewServer(generator, pipeline, jobs, pipeline.tempDir).RegisterRoutes(r)

	return &testServer{router: r, generator: generator, pipeline: pipeline, jobs: jobs}
}

func (ts *testServer) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	ts.router.ServeHTTP(w, req)
	return w
}

func TestGenerateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON(t, "/api/v1/generate", gin.H{"transcript": "a real transcript"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Episode Title")
	assert.Contains(t, w.Body.String(), "social_captions")
}

func TestGenerateEndpointEmptyTranscript(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty transcript", gin.H{"transcript": ""}},
		{"missing field", gin.H{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.postJSON(t, "/api/v1/generate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid_input")
		})
	}
}

func TestGenerateEndpointCostExceeded(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.err = fmt.Errorf("%w: cap reached", ai.ErrCostExceeded)

	w := ts.postJSON(t, "/api/v1/generate", gin.H{"transcript": "something"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "cost_exceeded")
}

func TestGenerateEndpointInternalFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.generator.err = fmt.Errorf("%w: upstream 500", ai.ErrGenerationFailed)

	w := ts.postJSON(t, "/api/v1/generate", gin.H{"transcript": "something"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Internal detail never reaches the response body
	assert.NotContains(t, w.Body.String(), "upstream 500")
}

func TestIngestEndpointMissingInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON(t, "/api/v1/ingest", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_input")
}

func TestIngestEndpointByURL(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.outcome = &audio.IngestOutcome{
		Result: &audio.IntakeResult{
			Transcript: "the transcript",
			Metadata:   audio.IntakeMetadata{FileSizeBytes: 1024},
		},
	}

	w := ts.postJSON(t, "/api/v1/ingest", gin.H{"file_url": "https://blobs.example.com/episode.mp3"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "the transcript")
}

func TestIngestEndpointQueued(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.outcome = &audio.IngestOutcome{QueueID: "job-42"}

	w := ts.postJSON(t, "/api/v1/ingest", gin.H{"file_url": "https://blobs.example.com/long.mp3"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "job-42")
	assert.Contains(t, w.Body.String(), "pending")
}

func TestIngestEndpointTooLarge(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.err = fmt.Errorf("%w: 30MB exceeds limit", audio.ErrTooLarge)

	w := ts.postJSON(t, "/api/v1/ingest", gin.H{"file_url": "https://blobs.example.com/huge.mp3"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "too_large")
}

func TestJobStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.jobs.Create("job-1")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/job-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pending")

	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestWorkerProcessEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.outcome = &audio.IngestOutcome{
		Result: &audio.IntakeResult{Transcript: "queued transcript"},
	}
	ts.jobs.Create("job-7")

	w := ts.postJSON(t, "/api/v1/worker/process", model.JobPayload{
		QueueID:  "job-7",
		Filename: "episode.mp3",
		FileData: []byte("audio bytes"),
	})
	require.Equal(t, http.StatusOK, w.Code)

	job, ok := ts.jobs.Get("job-7")
	require.True(t, ok)
	assert.Equal(t, queue.StatusCompleted, job.Status)
	require.NotNil(t, job.Result)

	// The materialized temp file must be gone after processing
	entries, err := os.ReadDir(ts.pipeline.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkerProcessEndpointRedelivery(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.outcome = &audio.IngestOutcome{
		Result: &audio.IntakeResult{Transcript: "queued transcript"},
	}
	ts.jobs.Create("job-8")

	payload := model.JobPayload{
		QueueID:  "job-8",
		Filename: "episode.mp3",
		BlobRef:  "queued/job-8.mp3",
		FileData: []byte("audio bytes"),
	}
	w := ts.postJSON(t, "/api/v1/worker/process", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"queued/job-8.mp3"}, ts.pipeline.discarded, "staged blob released after completion")

	first, ok := ts.jobs.Get("job-8")
	require.True(t, ok)
	require.Equal(t, queue.StatusCompleted, first.Status)

	// Second delivery of the same message, with the staged blob already
	// gone. The completed job must be acknowledged, not reprocessed.
	ts.pipeline.materializeErr = fmt.Errorf("%w: object not found", audio.ErrFetchFailed)
	w = ts.postJSON(t, "/api/v1/worker/process", payload)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "completed")

	second, ok := ts.jobs.Get("job-8")
	require.True(t, ok)
	assert.Equal(t, first, second, "redelivery leaves the recorded outcome untouched")
	assert.Len(t, ts.pipeline.discarded, 1, "no second discard on redelivery")
}

func TestWorkerProcessEndpointMissingQueueID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.postJSON(t, "/api/v1/worker/process", gin.H{"filename": "x.mp3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkerProcessEndpointFailureRecordsJob(t *testing.T) {
	ts := newTestServer(t)
	ts.pipeline.err = fmt.Errorf("%w: whisper down", audio.ErrFetchFailed)
	ts.jobs.Create("job-9")

	w := ts.postJSON(t, "/api/v1/worker/process", model.JobPayload{
		QueueID:  "job-9",
		Filename: "episode.mp3",
		FileData: []byte("audio bytes"),
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	job, ok := ts.jobs.Get("job-9")
	require.True(t, ok)
	assert.Equal(t, queue.StatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)
}
