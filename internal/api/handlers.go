package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gdiab/showscribe/internal/ai"
	"github.com/gdiab/showscribe/internal/audio"
	"github.com/gdiab/showscribe/internal/model"
	"github.com/gdiab/showscribe/internal/queue"
	"github.com/gdiab/showscribe/internal/utils"
)

// showNotesGenerator is the slice of ai.Generator the handlers need
type showNotesGenerator interface {
	Generate(ctx context.Context, transcript string) (*ai.ShowNotes, error)
}

// intakePipeline is the slice of audio.Pipeline the handlers need
type intakePipeline interface {
	IngestFile(ctx context.Context, localPath, filename string, sizeBytes int64) (*audio.IngestOutcome, error)
	IngestURL(ctx context.Context, fileURL string) (*audio.IngestOutcome, error)
	Process(ctx context.Context, localPath, filename string, sizeBytes int64) (*audio.IntakeResult, error)
	MaterializePayload(ctx context.Context, payload model.JobPayload) (string, int64, error)
	DiscardPayload(ctx context.Context, payload model.JobPayload)
}

// Server wires the orchestration core to the HTTP boundary
type Server struct {
	generator showNotesGenerator
	pipeline  intakePipeline
	jobs      *queue.Registry
	tempDir   string
}

// NewServer creates the HTTP boundary
func NewServer(generator showNotesGenerator, pipeline intakePipeline, jobs *queue.Registry, tempDir string) *Server {
	return &Server{
		generator: generator,
		pipeline:  pipeline,
		jobs:      jobs,
		tempDir:   tempDir,
	}
}

// RegisterRoutes registers the boundary contract. middleware (the rate
// limiter) applies to all API routes.
func (s *Server) RegisterRoutes(r *gin.Engine, middleware ...gin.HandlerFunc) {
	r.GET("/health", healthCheck)

	v1 := r.Group("/api/v1", middleware...)
	{
		v1.POST("/generate", s.generate)
		v1.POST("/ingest", s.ingest)
		v1.GET("/jobs/:id", s.jobStatus)
		v1.POST("/worker/process", s.processQueuedJob)
	}
}

// healthCheck returns server health status
func healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "showscribe-backend",
	})
}

// GenerateRequest is the generate endpoint body
type GenerateRequest struct {
	Transcript string `json:"transcript"`
}

// generate turns a transcript into structured show notes
func (s *Server) generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidInput, "transcript is required")
		return
	}

	notes, err := s.generator.Generate(c.Request.Context(), req.Transcript)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrEmptyTranscript):
			utils.Error(c, http.StatusBadRequest, utils.CodeInvalidInput, "transcript is required")
		case errors.Is(err, ai.ErrCostExceeded):
			log.Printf("[API] Generation rejected by cost cap: %v", err)
			utils.Error(c, http.StatusTooManyRequests, utils.CodeCostExceeded, "Daily budget reached. Please try again later.")
		default:
			log.Printf("[API] Generation error: %v", err)
			utils.Error(c, http.StatusInternalServerError, utils.CodeInternal, "failed to generate show notes")
		}
		return
	}

	utils.Success(c, gin.H{
		"title":           notes.Title,
		"summary":         notes.Summary,
		"highlights":      notes.Highlights,
		"guest_bio":       notes.GuestBio,
		"social_captions": notes.SocialCaptions,
		"metadata":        notes.Metadata,
	})
}

// IngestURLRequest is the JSON form of the ingest endpoint
type IngestURLRequest struct {
	FileURL string `json:"file_url"`
}

// ingest accepts an uploaded audio file (multipart) or a remote file
// reference (JSON) and returns a transcript, or a queue id when the file
// is deferred to the job queue.
func (s *Server) ingest(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var req IngestURLRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.FileURL == "" {
			utils.Error(c, http.StatusBadRequest, utils.CodeInvalidInput, "file_url is required")
			return
		}
		outcome, err := s.pipeline.IngestURL(c.Request.Context(), req.FileURL)
		if err != nil {
			s.intakeError(c, err)
			return
		}
		s.ingestResponse(c, outcome)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		// Alternative field names used by older clients
		if file, err = c.FormFile("audio"); err != nil {
			utils.Error(c, http.StatusBadRequest, utils.CodeInvalidInput, "file is required")
			return
		}
	}

	localPath := filepath.Join(s.tempDir, uuid.NewString()+"-"+filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, localPath); err != nil {
		log.Printf("[API] Failed to save upload: %v", err)
		utils.Error(c, http.StatusInternalServerError, utils.CodeInternal, "failed to save uploaded file")
		return
	}
	defer s.removeTemp(localPath)

	outcome, err := s.pipeline.IngestFile(c.Request.Context(), localPath, file.Filename, file.Size)
	if err != nil {
		s.intakeError(c, err)
		return
	}
	s.ingestResponse(c, outcome)
}

func (s *Server) ingestResponse(c *gin.Context, outcome *audio.IngestOutcome) {
	if outcome.QueueID != "" {
		utils.Accepted(c, gin.H{
			"queue_id": outcome.QueueID,
			"status":   string(queue.StatusPending),
		})
		return
	}
	utils.Success(c, gin.H{
		"transcript": outcome.Result.Transcript,
		"metadata":   outcome.Result.Metadata,
	})
}

// intakeError maps pipeline failures to the error taxonomy. Internal
// failures keep their detail in the log, never in the response.
func (s *Server) intakeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, audio.ErrInvalidInput):
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidInput, err.Error())
	case errors.Is(err, audio.ErrTooLarge):
		utils.Error(c, http.StatusRequestEntityTooLarge, utils.CodeTooLarge, err.Error())
	case errors.Is(err, audio.ErrCompressionUnavailable):
		utils.Error(c, http.StatusRequestEntityTooLarge, utils.CodeCompressionUnavailable,
			"audio compression is unavailable, please upload a smaller file")
	case errors.Is(err, ai.ErrCostExceeded):
		utils.Error(c, http.StatusTooManyRequests, utils.CodeCostExceeded, "Daily budget reached. Please try again later.")
	default:
		log.Printf("[API] Intake error: %v", err)
		utils.Error(c, http.StatusInternalServerError, utils.CodeInternal, "failed to process audio file")
	}
}

// jobStatus reports the state of an asynchronous job
func (s *Server) jobStatus(c *gin.Context) {
	id := c.Param("id")
	job, ok := s.jobs.Get(id)
	if !ok {
		utils.Error(c, http.StatusNotFound, utils.CodeNotFound, "job not found")
		return
	}

	utils.Success(c, gin.H{
		"id":         job.ID,
		"status":     job.Status,
		"result":     job.Result,
		"error":      job.Error,
		"created_at": job.CreatedAt,
	})
}

// processQueuedJob is the worker callback invoked by the async
// dispatcher. It runs the full pipeline against the delivered payload
// and always records the outcome in the job registry before returning.
// Delivery is at-least-once: a redelivered message for a job that
// already completed is acknowledged without reprocessing, so the
// recorded result is never disturbed.
func (s *Server) processQueuedJob(c *gin.Context) {
	var payload model.JobPayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.QueueID == "" {
		utils.Error(c, http.StatusBadRequest, utils.CodeInvalidInput, "queue_id is required")
		return
	}

	if job, ok := s.jobs.Get(payload.QueueID); ok && job.Status == queue.StatusCompleted {
		log.Printf("[Worker] Job %s already completed, acknowledging redelivery", payload.QueueID)
		utils.Success(c, gin.H{"queue_id": payload.QueueID, "status": string(queue.StatusCompleted)})
		return
	}

	log.Printf("[Worker] Processing queued job %s (file=%s)", payload.QueueID, payload.Filename)
	s.jobs.UpdateStatus(payload.QueueID, queue.StatusProcessing, nil, "")

	localPath, sizeBytes, err := s.pipeline.MaterializePayload(c.Request.Context(), payload)
	if err != nil {
		s.failJob(c, payload.QueueID, err)
		return
	}
	defer s.removeTemp(localPath)

	result, err := s.pipeline.Process(c.Request.Context(), localPath, payload.Filename, sizeBytes)
	if err != nil {
		s.failJob(c, payload.QueueID, err)
		return
	}

	notes, err := s.generator.Generate(c.Request.Context(), result.Transcript)
	if err != nil {
		s.failJob(c, payload.QueueID, err)
		return
	}

	s.jobs.UpdateStatus(payload.QueueID, queue.StatusCompleted, gin.H{
		"transcript":      result.Transcript,
		"metadata":        result.Metadata,
		"title":           notes.Title,
		"summary":         notes.Summary,
		"highlights":      notes.Highlights,
		"guest_bio":       notes.GuestBio,
		"social_captions": notes.SocialCaptions,
		"generation":      notes.Metadata,
	}, "")

	// Staged blobs are only released once the outcome is recorded, so a
	// redelivery that raced this one can still materialize the payload
	s.pipeline.DiscardPayload(c.Request.Context(), payload)

	utils.Success(c, gin.H{"queue_id": payload.QueueID, "status": string(queue.StatusCompleted)})
}

func (s *Server) failJob(c *gin.Context, queueID string, err error) {
	log.Printf("[Worker] Job %s failed: %v", queueID, err)
	s.jobs.UpdateStatus(queueID, queue.StatusFailed, nil, err.Error())
	utils.Error(c, http.StatusInternalServerError, utils.CodeInternal, "worker failed")
}

func (s *Server) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("[API] Warning: failed to remove temp file %s: %v", path, err)
	}
}
