// Package models defines server-side data models persisted in the database
// or written to object storage.
package models

import (
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/server/jobs"
)

// Job is the durable record of one asynchronous document-analysis unit.
// Medical content never lives on this row: the completed artifact is stored
// in object storage and referenced by ResultKey.
type Job struct {
	// ID is a generated UUID.
	ID string
	// UserID is the owner; a job is visible only to its owner.
	UserID string

	// Status is the stored status. timeout is derived at read time and
	// never appears here.
	Status jobs.Status

	// File metadata for the uploaded document.
	FileName          string
	SanitizedFileName string
	FileType          string
	FileSize          int64
	// Checksum is the SHA-256 hex digest of the uploaded content.
	Checksum string

	// UploadKey is the object-storage key of the uploaded file; deleted
	// best-effort after successful processing.
	UploadKey string
	// ResultKey points at the completed artifact in object storage.
	ResultKey string

	RetryCount int
	// ErrorMessage is the truncated, sanitized message of the last failure.
	ErrorMessage string

	UploadedAt          time.Time
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	LastRetryAt         *time.Time
}
