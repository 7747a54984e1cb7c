// Package jobs defines the document-job status model: stored statuses, legal
// transitions, the read-time timeout derivation, and progress reporting.
//
// Stored statuses move along uploaded → processing → {completed | failed},
// with failed → retrying → processing allowed while the retry budget lasts.
// timeout is never stored: readers derive it from timestamps.
package jobs

import (
	"math"
	"time"
)

// Status is the lifecycle state of a document job.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusRetrying   Status = "retrying"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"

	// StatusTimeout is derived at read time only.
	StatusTimeout Status = "timeout"
)

const (
	// ProcessingTimeout bounds how long a job may sit in uploaded or
	// processing before readers report it as timed out. It is also the
	// window over which processing progress ramps.
	ProcessingTimeout = 3 * time.Minute

	// MaxRetries caps retry attempts; past the cap a failed job is terminal.
	MaxRetries = 3
)

// transitions lists the legal stored-status edges.
var transitions = map[Status][]Status{
	StatusUploaded:   {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusRetrying},
	StatusRetrying:   {StatusProcessing},
}

// CanTransition reports whether from → to is a legal stored transition.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further stored transition can occur.
// failed is terminal only once the retry budget is spent.
func IsTerminal(s Status, retryCount int) bool {
	switch s {
	case StatusCompleted:
		return true
	case StatusFailed:
		return retryCount >= MaxRetries
	}
	return false
}

// EffectiveStatus derives the status surfaced to callers. A job stuck in
// processing (or never picked up from uploaded) past ProcessingTimeout
// reports timeout even though the stored row still carries the old status.
// Pure in (stored, timestamps, now) so callers can fix "now" in tests.
func EffectiveStatus(stored Status, uploadedAt time.Time, startedAt *time.Time, now time.Time) Status {
	switch stored {
	case StatusProcessing:
		if startedAt != nil && now.Sub(*startedAt) > ProcessingTimeout {
			return StatusTimeout
		}
	case StatusUploaded:
		if now.Sub(uploadedAt) > ProcessingTimeout {
			return StatusTimeout
		}
	}
	return stored
}

// Progress maps an effective status to the percentage the client renders.
// While processing, progress ramps linearly from 20 to 90 over the timeout
// window and is clamped at 90 until completion.
func Progress(effective Status, startedAt *time.Time, now time.Time) int {
	switch effective {
	case StatusUploaded:
		return 10
	case StatusRetrying:
		return 15
	case StatusProcessing:
		if startedAt == nil {
			return 20
		}
		p := 20 + float64(now.Sub(*startedAt))/float64(ProcessingTimeout)*70
		if p > 90 {
			p = 90
		}
		if p < 20 {
			p = 20
		}
		return int(math.Round(p))
	case StatusCompleted:
		return 100
	}
	// failed, timeout
	return 0
}
