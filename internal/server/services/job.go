package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/logging"
	"github.com/m00n5h075/serenya-sub003/internal/server/config"
	"github.com/m00n5h075/serenya-sub003/internal/server/fieldcrypt"
	"github.com/m00n5h075/serenya-sub003/internal/server/jobs"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/repomanager"
	"github.com/m00n5h075/serenya-sub003/internal/server/results"
	"github.com/m00n5h075/serenya-sub003/internal/server/storage"
)

// LLMClient is the model surface the services need. *ai.Client satisfies it.
type LLMClient interface {
	Analyze(ctx context.Context, document, docType string) (*models.RawAnalysis, error)
	Answer(ctx context.Context, question, priorContext string) (*models.ChatAnswer, error)
}

const (
	// maxUploadSize bounds accepted document payloads.
	maxUploadSize = 10 << 20

	// maxPersistedErrorLen bounds the sanitized message stored on a job row.
	maxPersistedErrorLen = 200

	classificationInterpretation = "medical_interpretation"
)

// JobService owns the document-job lifecycle: submission, status and result
// reads for the owning user, and the worker-side processing path.
type JobService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  storage.ObjectStore
	cipher *fieldcrypt.Cipher
	llm    LLMClient
	logger logging.Logger
	audit  *auditTrail

	masterKeyID string
	modelID     string

	now func() time.Time
}

func NewJobService(db *sql.DB, repos repomanager.RepositoryManager, store storage.ObjectStore,
	cipher *fieldcrypt.Cipher, llm LLMClient, logger logging.Logger, cfg *config.Config, userSalt []byte) *JobService {
	now := time.Now
	return &JobService{
		db:          db,
		repos:       repos,
		store:       store,
		cipher:      cipher,
		llm:         llm,
		logger:      logger,
		audit:       &auditTrail{db: db, repos: repos, logger: logger, salt: userSalt, now: now},
		masterKeyID: cfg.KMSMasterKeyID,
		modelID:     cfg.BedrockModelID,
		now:         now,
	}
}

// DocumentUpload is the inbound payload of a submission.
type DocumentUpload struct {
	FileName string
	FileType string
	Content  []byte
}

// sanitizeFileName strips any path component and reduces the name to a safe
// character set for storage metadata and logs.
func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
}

// SubmitDocument accepts a document, stores the raw upload, and creates the
// job row in uploaded. Processing happens asynchronously in the worker.
func (s *JobService) SubmitDocument(ctx context.Context, userID string, upload DocumentUpload) (*SubmitResponse, error) {
	switch {
	case userID == "":
		return nil, &APIError{Code: CodeValidationError, Message: "user id is required"}
	case upload.FileName == "":
		return nil, &APIError{Code: CodeValidationError, Message: "file name is required"}
	case len(upload.Content) == 0:
		return nil, &APIError{Code: CodeValidationError, Message: "document content is empty"}
	case len(upload.Content) > maxUploadSize:
		return nil, &APIError{Code: CodeValidationError, Message: "document exceeds the maximum upload size"}
	}

	now := s.now()
	sum := sha256.Sum256(upload.Content)
	jobID := uuid.NewString()

	job := &models.Job{
		ID:                jobID,
		UserID:            userID,
		Status:            jobs.StatusUploaded,
		FileName:          upload.FileName,
		SanitizedFileName: sanitizeFileName(upload.FileName),
		FileType:          upload.FileType,
		FileSize:          int64(len(upload.Content)),
		Checksum:          hex.EncodeToString(sum[:]),
		UploadKey:         storage.UploadKey(now, jobID),
		UploadedAt:        now,
	}

	if err := s.store.Put(ctx, job.UploadKey, upload.Content, map[string]string{"checksum": job.Checksum}); err != nil {
		s.logger.Error(ctx, "upload store failed", "job_id", job.ID, "error", logging.SanitizeError(err, 0))
		return nil, toAPIError(err)
	}

	if err := s.repos.Jobs(s.db).Create(ctx, job); err != nil {
		s.logger.Error(ctx, "job create failed", "job_id", job.ID, "error", err.Error())
		return nil, toAPIError(err)
	}

	s.audit.record(ctx, userID, auditDocumentUploaded, job.ID, "")
	s.logger.Info(ctx, "document submitted", "job_id", job.ID, "file_size", job.FileSize)

	return &SubmitResponse{
		JobID:                      job.ID,
		Status:                     string(jobs.StatusUploaded),
		EstimatedCompletionSeconds: int(jobs.ProcessingTimeout.Seconds()),
	}, nil
}

// getOwned loads a job and enforces ownership. A job owned by someone else
// reads as not-found so existence is never leaked.
func (s *JobService) getOwned(ctx context.Context, userID, jobID string) (*models.Job, error) {
	job, err := s.repos.Jobs(s.db).GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return job, nil
}

// GetStatus returns the effective status and progress of the caller's job.
func (s *JobService) GetStatus(ctx context.Context, userID, jobID string) (*JobStatusResponse, error) {
	job, err := s.getOwned(ctx, userID, jobID)
	if err != nil {
		return nil, toAPIError(err)
	}

	now := s.now()
	effective := jobs.EffectiveStatus(job.Status, job.UploadedAt, job.ProcessingStartedAt, now)

	resp := &JobStatusResponse{
		JobID:               job.ID,
		Status:              string(effective),
		ProgressPercentage:  jobs.Progress(effective, job.ProcessingStartedAt, now),
		UploadedAt:          job.UploadedAt,
		ProcessingStartedAt: job.ProcessingStartedAt,
		CompletedAt:         job.CompletedAt,
		RetryCount:          job.RetryCount,
	}
	switch effective {
	case jobs.StatusFailed:
		resp.Error = job.ErrorMessage
	case jobs.StatusTimeout:
		resp.Error = "processing timed out"
	}
	return resp, nil
}

// GetResult fetches and decrypts the completed analysis for the caller's job
// and assembles the client-facing result. Reading a result is a PHI access
// and is audited.
func (s *JobService) GetResult(ctx context.Context, userID, jobID string) (*results.Result, error) {
	job, err := s.getOwned(ctx, userID, jobID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if job.Status != jobs.StatusCompleted {
		return nil, toAPIError(common.ErrorResultNotReady)
	}

	raw, err := s.store.Get(ctx, job.ResultKey)
	if err != nil {
		s.logger.Error(ctx, "result fetch failed", "job_id", job.ID, "error", logging.SanitizeError(err, 0))
		return nil, toAPIError(err)
	}

	var artifact models.AnalysisArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, toAPIError(fmt.Errorf("corrupt result artifact: %w", err))
	}

	interpretation, err := s.cipher.DecryptField(ctx, artifact.Interpretation)
	if err != nil {
		// fail closed: an unreadable interpretation means no result at all
		s.logger.Error(ctx, "result decrypt failed", "job_id", job.ID, "error", logging.SanitizeError(err, 0))
		return nil, toAPIError(err)
	}

	s.audit.record(ctx, userID, auditResultAccessed, job.ID, "")

	return results.Assemble(&models.RawAnalysis{
		ConfidenceScore: artifact.ConfidenceScore,
		Interpretation:  interpretation,
		Flags:           artifact.Flags,
	}, map[string]string{
		"model_id":     artifact.ModelID,
		"duration_ms":  strconv.FormatInt(artifact.DurationMillis, 10),
		"file_type":    job.FileType,
		"completed_at": artifact.CompletedAt.UTC().Format(time.RFC3339),
	}), nil
}

// ProcessJob runs the worker-side pipeline for one job: mark processing,
// fetch the upload, invoke the model, encrypt the interpretation, persist
// the artifact, and mark completed. Any pipeline failure marks the job
// failed with a sanitized message.
func (s *JobService) ProcessJob(ctx context.Context, jobID string) error {
	repo := s.repos.Jobs(s.db)

	job, err := repo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !jobs.CanTransition(job.Status, jobs.StatusProcessing) {
		return fmt.Errorf("%w: %s -> %s", common.ErrorInvalidTransition, job.Status, jobs.StatusProcessing)
	}

	started := s.now()
	if err := repo.MarkProcessing(ctx, jobID, started); err != nil {
		return err
	}
	s.audit.record(ctx, job.UserID, auditAnalysisStarted, jobID, "")

	content, err := s.store.Get(ctx, job.UploadKey)
	if err != nil {
		return s.failJob(ctx, job, fmt.Errorf("fetch upload: %w", err))
	}

	analysis, err := s.llm.Analyze(ctx, string(content), job.FileType)
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	envelope, err := s.cipher.EncryptField(ctx, analysis.Interpretation, s.masterKeyID, map[string]string{
		"job_id":         jobID,
		"classification": classificationInterpretation,
	})
	if err != nil {
		return s.failJob(ctx, job, err)
	}

	completed := s.now()
	artifact := models.AnalysisArtifact{
		JobID:           jobID,
		ConfidenceScore: analysis.ConfidenceScore,
		Interpretation:  envelope,
		Flags:           analysis.Flags,
		ModelID:         s.modelID,
		DurationMillis:  completed.Sub(started).Milliseconds(),
		CompletedAt:     completed,
	}
	body, err := json.Marshal(artifact)
	if err != nil {
		return s.failJob(ctx, job, fmt.Errorf("marshal artifact: %w", err))
	}

	resultKey := storage.ResultKey(jobID)
	if err := s.store.Put(ctx, resultKey, body, nil); err != nil {
		return s.failJob(ctx, job, fmt.Errorf("store artifact: %w", err))
	}

	if err := repo.MarkCompleted(ctx, jobID, completed, resultKey); err != nil {
		return err
	}

	// the raw upload is no longer needed; cleanup is best-effort
	if err := s.store.Delete(ctx, job.UploadKey); err != nil {
		s.logger.Warn(ctx, "upload cleanup failed", "job_id", jobID, "error", logging.SanitizeError(err, 0))
	}

	s.audit.record(ctx, job.UserID, auditAnalysisCompleted, jobID, "")
	s.logger.Info(ctx, "job completed", "job_id", jobID, "duration_ms", artifact.DurationMillis)
	return nil
}

// failJob records a sanitized failure on the job row and returns the cause
// to the worker loop for logging.
func (s *JobService) failJob(ctx context.Context, job *models.Job, cause error) error {
	msg := logging.SanitizeError(cause, maxPersistedErrorLen)
	if err := s.repos.Jobs(s.db).MarkFailed(ctx, job.ID, msg); err != nil {
		s.logger.Error(ctx, "mark failed errored", "job_id", job.ID, "error", err.Error())
	}
	s.audit.record(ctx, job.UserID, auditAnalysisFailed, job.ID, msg)
	return fmt.Errorf("process job %s: %w", job.ID, cause)
}

// RetryJob re-queues the caller's failed job while the retry budget lasts.
func (s *JobService) RetryJob(ctx context.Context, userID, jobID string) (*SubmitResponse, error) {
	job, err := s.getOwned(ctx, userID, jobID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if job.Status != jobs.StatusFailed {
		return nil, &APIError{Code: CodeValidationError, Message: "only failed jobs can be retried"}
	}
	if job.RetryCount >= jobs.MaxRetries {
		return nil, toAPIError(common.ErrorRetryExhausted)
	}

	if err := s.repos.Jobs(s.db).MarkRetrying(ctx, jobID, s.now()); err != nil {
		return nil, toAPIError(err)
	}
	s.audit.record(ctx, userID, auditJobRetried, jobID, "attempt "+strconv.Itoa(job.RetryCount+1))

	return &SubmitResponse{
		JobID:                      jobID,
		Status:                     string(jobs.StatusRetrying),
		EstimatedCompletionSeconds: int(jobs.ProcessingTimeout.Seconds()),
	}, nil
}

// PendingJobs returns ids of jobs awaiting the worker, oldest first:
// uploaded jobs, then re-queued retries.
func (s *JobService) PendingJobs(ctx context.Context, limit int) ([]string, error) {
	repo := s.repos.Jobs(s.db)

	var ids []string
	for _, status := range []jobs.Status{jobs.StatusUploaded, jobs.StatusRetrying} {
		if len(ids) >= limit {
			break
		}
		batch, err := repo.SelectByStatus(ctx, status, limit-len(ids))
		if err != nil {
			return nil, err
		}
		for _, j := range batch {
			ids = append(ids, j.ID)
		}
	}
	return ids, nil
}
