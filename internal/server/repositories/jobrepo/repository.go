// Package jobrepo provides the PostgreSQL-backed repository for durable
// document-job records.
package jobrepo

import (
	"context"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/server/jobs"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

// Repository is the job persistence surface.
//
// The Mark* operations are unconditional last-writer-wins updates: two
// concurrent workers touching the same job id can race, which is an accepted
// limitation of the design. Strengthening to conditional updates (WHERE
// status = expected) would not change this interface.
type Repository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	SelectByStatus(ctx context.Context, status jobs.Status, limit int) ([]*models.Job, error)

	MarkProcessing(ctx context.Context, id string, startedAt time.Time) error
	MarkCompleted(ctx context.Context, id string, completedAt time.Time, resultKey string) error
	MarkFailed(ctx context.Context, id string, errorMessage string) error
	// MarkRetrying re-queues a failed job, incrementing retry_count and
	// recording last_retry_at.
	MarkRetrying(ctx context.Context, id string, retryAt time.Time) error
}
