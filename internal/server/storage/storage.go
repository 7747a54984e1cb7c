// Package storage wraps the object store holding uploaded documents,
// completed analysis artifacts, and transient chat artifacts.
package storage

import (
	"context"
	"fmt"
	"time"
)

// ObjectStore is the object-storage surface the services use. Get must
// return common.ErrorNotFound (wrapped or not) for missing keys so callers
// can tell absence from failure.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// UploadKey returns the storage key for a job's uploaded document,
// date-prefixed for lifecycle rules.
func UploadKey(t time.Time, jobID string) string {
	return fmt.Sprintf("uploads/%d/%d/%d/%s", t.Year(), t.Month(), t.Day(), jobID)
}

// ResultKey returns the storage key of a completed analysis artifact.
func ResultKey(jobID string) string {
	return "results/" + jobID
}

// ChatKey returns the storage key of a chat response artifact. Derivable
// from the job id alone: the polling endpoint has nothing else.
func ChatKey(chatJobID string) string {
	return "chat/responses/" + chatJobID
}
