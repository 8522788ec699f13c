package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gdiab/showscribe/internal/ai"
	"github.com/gdiab/showscribe/internal/config"
	"github.com/gdiab/showscribe/internal/model"
	"github.com/gdiab/showscribe/internal/queue"
)

var (
	// ErrInvalidInput marks user-fixable validation failures
	ErrInvalidInput = errors.New("invalid input")

	// ErrTooLarge means the audio exceeds the transcription provider
	// limit and compression could not bring it under.
	ErrTooLarge = errors.New("audio file too large for transcription")

	// ErrFetchFailed means a remote blob reference could not be retrieved
	ErrFetchFailed = errors.New("failed to fetch remote file")
)

// Hard limit of the transcription provider
const providerLimitBytes = 25 * 1024 * 1024

var allowedExtensions = []string{".mp3", ".wav"}

// Transcriber is the slice of the provider client the pipeline needs
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, ai.CallMetrics, error)
}

// Dispatcher hands oversized payloads to an external queue worker
type Dispatcher interface {
	Enabled() bool
	Dispatch(ctx context.Context, payload model.JobPayload) error
}

// BlobStore stages queued payloads in object storage
type BlobStore interface {
	Upload(ctx context.Context, objectName, filePath string) error
	Download(ctx context.Context, objectName, dstPath string) error
	Remove(ctx context.Context, objectName string) error
}

// IntakeMetadata describes one intake run
type IntakeMetadata struct {
	FileSizeBytes          int64   `json:"file_size_bytes"`
	Compressed             bool    `json:"compressed"`
	CompressionRatio       float64 `json:"compression_ratio,omitempty"`
	TranscriptionLatencyMs int64   `json:"transcription_latency_ms"`
	CostUSD                float64 `json:"cost_usd"`
	TranscriptLength       int     `json:"transcript_length"`
}

// IntakeResult is the synchronous outcome of an intake run
type IntakeResult struct {
	Transcript string         `json:"transcript"`
	Metadata   IntakeMetadata `json:"metadata"`
}

// IngestOutcome is either a completed result or a queued job id
type IngestOutcome struct {
	Result  *IntakeResult
	QueueID string
}

// Pipeline turns an uploaded file or remote reference into a transcript.
// Every temporary artifact the pipeline creates is removed on every exit
// path; cleanup failures are logged and never escalate over the primary
// error.
type Pipeline struct {
	transcriber Transcriber
	compressor  *Compressor
	jobs        *queue.Registry
	dispatcher  Dispatcher
	blobs       BlobStore

	maxUploadBytes     int64
	syncThresholdBytes int64
	tempDir            string
}

// NewPipeline creates a media intake pipeline. blobs may be nil, in
// which case queued payloads travel inline in the dispatch message.
func NewPipeline(cfg *config.Config, transcriber Transcriber, compressor *Compressor, jobs *queue.Registry, dispatcher Dispatcher, blobs BlobStore) *Pipeline {
	return &Pipeline{
		transcriber:        transcriber,
		compressor:         compressor,
		jobs:               jobs,
		dispatcher:         dispatcher,
		blobs:              blobs,
		maxUploadBytes:     cfg.MaxUploadBytes,
		syncThresholdBytes: cfg.SyncThresholdBytes,
		tempDir:            cfg.TempDir,
	}
}

// Validate checks declared name and size before any work is done
func (p *Pipeline) Validate(filename string, sizeBytes int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := false
	for _, a := range allowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: unsupported audio format %q, only MP3 and WAV are accepted", ErrInvalidInput, ext)
	}
	if sizeBytes <= 0 {
		return fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if sizeBytes > p.maxUploadBytes {
		return fmt.Errorf("%w: file is %dMB, maximum is %dMB",
			ErrInvalidInput, sizeBytes/1024/1024, p.maxUploadBytes/1024/1024)
	}
	return nil
}

// IngestFile processes a local file. Files above the synchronous
// threshold are queued for out-of-band processing when a dispatcher is
// configured; otherwise processing happens inline.
func (p *Pipeline) IngestFile(ctx context.Context, localPath, filename string, sizeBytes int64) (*IngestOutcome, error) {
	if err := p.Validate(filename, sizeBytes); err != nil {
		return nil, err
	}

	if sizeBytes > p.syncThresholdBytes && p.dispatcher != nil && p.dispatcher.Enabled() {
		queueID, err := p.enqueue(ctx, localPath, filename)
		if err == nil {
			return &IngestOutcome{QueueID: queueID}, nil
		}
		log.Printf("[Intake] Async dispatch failed, falling back to synchronous processing: %v", err)
	}

	result, err := p.Process(ctx, localPath, filename, sizeBytes)
	if err != nil {
		return nil, err
	}
	return &IngestOutcome{Result: result}, nil
}

// IngestURL fetches a remote file into a temporary artifact and ingests
// it. The downloaded artifact is always removed before returning.
func (p *Pipeline) IngestURL(ctx context.Context, fileURL string) (*IngestOutcome, error) {
	localPath, filename, sizeBytes, err := p.fetchToTemp(ctx, fileURL)
	if err != nil {
		return nil, err
	}
	defer p.removeArtifact(localPath)

	return p.IngestFile(ctx, localPath, filename, sizeBytes)
}

// Process runs the synchronous path: compress if policy requires and an
// engine is available, enforce the provider size limit, transcribe.
func (p *Pipeline) Process(ctx context.Context, localPath, filename string, sizeBytes int64) (*IntakeResult, error) {
	audioPath := localPath
	finalSize := sizeBytes
	meta := IntakeMetadata{FileSizeBytes: sizeBytes}

	if ShouldCompress(filename, sizeBytes) {
		result, err := p.compressor.Compress(ctx, localPath)
		switch {
		case err == nil:
			defer p.removeArtifact(result.OutputPath)
			audioPath = result.OutputPath
			finalSize = result.CompressedSize
			meta.Compressed = true
			meta.CompressionRatio = result.CompressionRatio
		case errors.Is(err, ErrCompressionUnavailable):
			// Soft failure: proceed uncompressed if size still fits
			log.Printf("[Intake] Compression unavailable for %s, proceeding uncompressed", filename)
		default:
			log.Printf("[Intake] Compression failed for %s, proceeding uncompressed: %v", filename, err)
		}
	}

	if finalSize > providerLimitBytes {
		return nil, fmt.Errorf("%w: %dMB exceeds the %dMB transcription limit, try a compressed or shorter file",
			ErrTooLarge, finalSize/1024/1024, providerLimitBytes/1024/1024)
	}

	transcript, metrics, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	meta.TranscriptionLatencyMs = metrics.LatencyMs
	meta.CostUSD = metrics.CostUSD
	meta.TranscriptLength = len(transcript)

	log.Printf("[Intake] Transcription completed: fileSize=%d compressed=%v latencyMs=%d transcriptLength=%d",
		sizeBytes, meta.Compressed, metrics.LatencyMs, len(transcript))

	return &IntakeResult{Transcript: transcript, Metadata: meta}, nil
}

// MaterializePayload turns a dispatched payload back into a local file
// for the worker callback. The caller removes the returned path. The
// staged blob is left in place so a redelivered message can materialize
// again; DiscardPayload removes it once the job outcome is recorded.
func (p *Pipeline) MaterializePayload(ctx context.Context, payload model.JobPayload) (string, int64, error) {
	localPath := filepath.Join(p.tempDir, payload.QueueID+"-"+filepath.Base(payload.Filename))

	if payload.BlobRef != "" {
		if p.blobs == nil {
			return "", 0, fmt.Errorf("payload references blob %q but no blob store is configured", payload.BlobRef)
		}
		if err := p.blobs.Download(ctx, payload.BlobRef, localPath); err != nil {
			return "", 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}
	} else {
		if len(payload.FileData) == 0 {
			return "", 0, fmt.Errorf("%w: payload has neither blob reference nor inline data", ErrInvalidInput)
		}
		if err := os.WriteFile(localPath, payload.FileData, 0644); err != nil {
			return "", 0, fmt.Errorf("failed to write payload to disk: %w", err)
		}
	}

	info, err := os.Stat(localPath)
	if err != nil {
		p.removeArtifact(localPath)
		return "", 0, err
	}
	return localPath, info.Size(), nil
}

// DiscardPayload removes the staged copy of a payload whose job outcome
// has been recorded. Removal failures only cost storage, never correctness.
func (p *Pipeline) DiscardPayload(ctx context.Context, payload model.JobPayload) {
	if payload.BlobRef == "" || p.blobs == nil {
		return
	}
	if err := p.blobs.Remove(ctx, payload.BlobRef); err != nil {
		log.Printf("[Intake] Warning: failed to remove staged blob %s: %v", payload.BlobRef, err)
	}
}

// enqueue stages the payload, registers a pending job and hands it to
// the dispatcher. The job is registered before dispatch so a fast worker
// callback never races an unknown id.
func (p *Pipeline) enqueue(ctx context.Context, localPath, filename string) (string, error) {
	queueID := uuid.NewString()
	payload := model.JobPayload{QueueID: queueID, Filename: filename}

	if p.blobs != nil {
		objectName := "queued/" + queueID + strings.ToLower(filepath.Ext(filename))
		if err := p.blobs.Upload(ctx, objectName, localPath); err != nil {
			return "", fmt.Errorf("failed to stage payload: %w", err)
		}
		payload.BlobRef = objectName
	} else {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return "", fmt.Errorf("failed to read payload: %w", err)
		}
		payload.FileData = data
	}

	p.jobs.Create(queueID)
	if err := p.dispatcher.Dispatch(ctx, payload); err != nil {
		// The id was never handed out, so the record would only linger
		p.jobs.Remove(queueID)
		return "", err
	}

	log.Printf("[Intake] Queued job %s for async processing (file=%s)", queueID, filename)
	return queueID, nil
}

// fetchToTemp downloads an http(s) reference into the temp directory
func (p *Pipeline) fetchToTemp(ctx context.Context, fileURL string) (string, string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", 0, fmt.Errorf("%w: remote returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	filename := filepath.Base(req.URL.Path)
	localPath := filepath.Join(p.tempDir, uuid.NewString()+"-"+filename)

	out, err := os.Create(localPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, p.maxUploadBytes+1))
	closeErr := out.Close()
	if err != nil || closeErr != nil {
		p.removeArtifact(localPath)
		if err == nil {
			err = closeErr
		}
		return "", "", 0, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if written > p.maxUploadBytes {
		p.removeArtifact(localPath)
		return "", "", 0, fmt.Errorf("%w: remote file exceeds %dMB limit",
			ErrInvalidInput, p.maxUploadBytes/1024/1024)
	}

	return localPath, filename, written, nil
}

// removeArtifact deletes a temp artifact, logging failures only
func (p *Pipeline) removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[Intake] Warning: failed to remove temp artifact %s: %v", path, err)
	}
}
