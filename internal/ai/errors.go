package ai

import "errors"

var (
	// ErrCostExceeded means the daily spend cap would be crossed; the
	// provider call was never dispatched.
	ErrCostExceeded = errors.New("daily cost limit exceeded")

	// ErrEmptyTranscript means generation was requested without a transcript.
	ErrEmptyTranscript = errors.New("transcript is empty")

	// ErrGenerationFailed wraps any non-budget failure of the show-notes
	// fan-out. The underlying cause is logged, not returned to end users.
	ErrGenerationFailed = errors.New("show notes generation failed")

	// ErrPromptNotFound is returned for an unknown prompt template name.
	ErrPromptNotFound = errors.New("prompt template not found")
)
