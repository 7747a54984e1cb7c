package server

import (
	"context"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/logging"
	"github.com/m00n5h075/serenya-sub003/internal/server/services"
)

// Worker drains pending document jobs on a fixed poll interval. Jobs in a
// batch are processed sequentially; a failed job is recorded by the service
// and does not stop the batch.
type Worker struct {
	jobs      *services.JobService
	logger    logging.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(jobs *services.JobService, logger logging.Logger, interval time.Duration, batchSize int) *Worker {
	return &Worker{jobs: jobs, logger: logger, interval: interval, batchSize: batchSize}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info(ctx, "worker started", "interval", w.interval.String(), "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	ids, err := w.jobs.PendingJobs(ctx, w.batchSize)
	if err != nil {
		w.logger.Error(ctx, "pending jobs query failed", "error", err.Error())
		return
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if err := w.jobs.ProcessJob(ctx, id); err != nil {
			w.logger.Error(ctx, "job processing failed", "job_id", id, "error", logging.SanitizeError(err, 0))
		}
	}
}
