package jobrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/dbx"
	"github.com/m00n5h075/serenya-sub003/internal/server/jobs"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

// PostgresRepository implements job storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const jobColumns = `id, user_id, status, file_name, sanitized_file_name, file_type, file_size,
	checksum, upload_key, result_key, retry_count, error_message,
	uploaded_at, processing_started_at, completed_at, last_retry_at`

func (r *PostgresRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.UserID, string(job.Status),
		job.FileName, job.SanitizedFileName, job.FileType, job.FileSize,
		job.Checksum, job.UploadKey, job.ResultKey, job.RetryCount, job.ErrorMessage,
		job.UploadedAt, job.ProcessingStartedAt, job.CompletedAt, job.LastRetryAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func scanJob(scan func(dest ...any) error) (*models.Job, error) {
	var (
		job       models.Job
		status    string
		startedAt sql.NullTime
		doneAt    sql.NullTime
		retryAt   sql.NullTime
	)
	err := scan(
		&job.ID, &job.UserID, &status,
		&job.FileName, &job.SanitizedFileName, &job.FileType, &job.FileSize,
		&job.Checksum, &job.UploadKey, &job.ResultKey, &job.RetryCount, &job.ErrorMessage,
		&job.UploadedAt, &startedAt, &doneAt, &retryAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = jobs.Status(status)
	if startedAt.Valid {
		job.ProcessingStartedAt = &startedAt.Time
	}
	if doneAt.Valid {
		job.CompletedAt = &doneAt.Time
	}
	if retryAt.Valid {
		job.LastRetryAt = &retryAt.Time
	}
	return &job, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return job, nil
}

// SelectByStatus returns up to limit jobs in the given stored status,
// oldest first, for the worker loop.
func (r *PostgresRepository) SelectByStatus(ctx context.Context, status jobs.Status, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY uploaded_at LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select jobs: %w", err)
	}
	defer rows.Close()

	var result []*models.Job
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// exec runs an update and maps zero affected rows to ErrorNotFound.
func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	query := `
		UPDATE jobs SET status = $2, processing_started_at = $3, error_message = ''
		WHERE id = $1
	`
	return r.exec(ctx, query, id, string(jobs.StatusProcessing), startedAt)
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time, resultKey string) error {
	query := `
		UPDATE jobs SET status = $2, completed_at = $3, result_key = $4
		WHERE id = $1
	`
	return r.exec(ctx, query, id, string(jobs.StatusCompleted), completedAt, resultKey)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	query := `
		UPDATE jobs SET status = $2, error_message = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, id, string(jobs.StatusFailed), errorMessage)
}

func (r *PostgresRepository) MarkRetrying(ctx context.Context, id string, retryAt time.Time) error {
	query := `
		UPDATE jobs SET status = $2, retry_count = retry_count + 1, last_retry_at = $3
		WHERE id = $1
	`
	return r.exec(ctx, query, id, string(jobs.StatusRetrying), retryAt)
}
