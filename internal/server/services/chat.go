package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/logging"
	"github.com/m00n5h075/serenya-sub003/internal/server/chat"
	"github.com/m00n5h075/serenya-sub003/internal/server/fieldcrypt"
	"github.com/m00n5h075/serenya-sub003/internal/server/jobs"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/repomanager"
	"github.com/m00n5h075/serenya-sub003/internal/server/storage"
)

const (
	maxQuestionLen = 1000

	// chatEstimateSeconds is the completion estimate returned on acceptance.
	chatEstimateSeconds = 30
)

// chatDisclaimers are appended to every successful answer, after whatever
// disclaimers the model produced.
var chatDisclaimers = []string{
	"This answer is for informational purposes only and is not a medical diagnosis.",
	"Always consult a qualified healthcare provider about your results.",
}

// ChatService runs the follow-up question sub-flow. Chat jobs have no
// database row: the composite id carries ownership and expiry, and the only
// server-side state is a single-consumption artifact in object storage.
type ChatService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  storage.ObjectStore
	cipher *fieldcrypt.Cipher
	llm    LLMClient
	logger logging.Logger
	audit  *auditTrail

	now func() time.Time
	// spawn detaches the processing half from the submitting request.
	// Tests replace it to run inline.
	spawn func(func())
}

func NewChatService(db *sql.DB, repos repomanager.RepositoryManager, store storage.ObjectStore,
	cipher *fieldcrypt.Cipher, llm LLMClient, logger logging.Logger, userSalt []byte) *ChatService {
	now := time.Now
	return &ChatService{
		db:     db,
		repos:  repos,
		store:  store,
		cipher: cipher,
		llm:    llm,
		logger: logger,
		audit:  &auditTrail{db: db, repos: repos, logger: logger, salt: userSalt, now: now},
		now:    now,
		spawn:  func(f func()) { go f() },
	}
}

// Submit validates a follow-up question against a completed document job the
// caller owns, mints a chat job id, and kicks off processing. The caller
// polls with the returned id.
func (s *ChatService) Submit(ctx context.Context, userID, sourceJobID, question string) (*ChatAck, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return nil, &APIError{Code: CodeValidationError, Message: "message is required"}
	}
	if utf8.RuneCountInString(q) > maxQuestionLen {
		return nil, &APIError{Code: CodeValidationError, Message: "message exceeds 1000 characters"}
	}

	source, err := s.repos.Jobs(s.db).GetByID(ctx, sourceJobID)
	if err != nil {
		return nil, toAPIError(err)
	}
	if source.UserID != userID {
		return nil, toAPIError(common.ErrorNotFound)
	}
	if source.Status != jobs.StatusCompleted {
		return nil, toAPIError(common.ErrorResultNotReady)
	}

	chatJobID, err := chat.NewJobID(userID, s.now())
	if err != nil {
		return nil, toAPIError(err)
	}

	s.audit.record(ctx, userID, auditChatSubmitted, chatJobID, "source "+sourceJobID)

	resultKey := source.ResultKey
	s.spawn(func() {
		// detached from the request; the submitter polls for the outcome
		wctx, cancel := context.WithTimeout(context.Background(), jobs.ProcessingTimeout)
		defer cancel()
		if err := s.Process(wctx, chatJobID, q, resultKey); err != nil {
			s.logger.Error(wctx, "chat processing failed", "chat_job_id", chatJobID, "error", logging.SanitizeError(err, 0))
		}
	})

	return &ChatAck{
		JobID:                      chatJobID,
		Status:                     "accepted",
		EstimatedCompletionSeconds: chatEstimateSeconds,
	}, nil
}

// Process runs the asynchronous half of a chat job: load the prior analysis,
// ask the model, and write exactly one artifact, success or failure. Failures
// are materialized as a failure artifact so polling terminates either way.
func (s *ChatService) Process(ctx context.Context, chatJobID, question, resultKey string) error {
	artifact := models.ChatArtifact{JobID: chatJobID, CreatedAt: s.now()}

	answer, err := s.answer(ctx, question, resultKey)
	if err != nil {
		s.logger.Error(ctx, "chat answer failed", "chat_job_id", chatJobID, "error", logging.SanitizeError(err, 0))
		artifact.Failure = &models.ChatFailure{
			Code:     "CHAT_PROCESSING_FAILED",
			Message:  logging.SanitizeError(err, maxPersistedErrorLen),
			Category: failureCategory(err),
		}
	} else {
		answer.Disclaimers = append(answer.Disclaimers, chatDisclaimers...)
		artifact.Response = answer
	}

	body, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal chat artifact: %w", err)
	}
	return s.store.Put(ctx, storage.ChatKey(chatJobID), body, nil)
}

func (s *ChatService) answer(ctx context.Context, question, resultKey string) (*models.ChatAnswer, error) {
	raw, err := s.store.Get(ctx, resultKey)
	if err != nil {
		return nil, fmt.Errorf("fetch source artifact: %w", err)
	}

	var source models.AnalysisArtifact
	if err := json.Unmarshal(raw, &source); err != nil {
		return nil, fmt.Errorf("corrupt source artifact: %w", err)
	}

	prior, err := s.cipher.DecryptField(ctx, source.Interpretation)
	if err != nil {
		return nil, err
	}

	return s.llm.Answer(ctx, question, prior)
}

func failureCategory(err error) string {
	if errors.Is(err, common.ErrorDependency) {
		return "external_dependency"
	}
	return "internal"
}

// Poll reports the state of a chat job to its owner. While no artifact
// exists the job is processing. The first poll that finds an artifact
// consumes it: the artifact is deleted and its content returned (or, for a
// failure artifact, surfaced as an error). Subsequent polls see processing
// again.
func (s *ChatService) Poll(ctx context.Context, userID, chatJobID string) (*ChatStatusResponse, error) {
	if _, err := chat.Parse(chatJobID, userID, s.now()); err != nil {
		return nil, toAPIError(err)
	}

	key := storage.ChatKey(chatJobID)
	body, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &ChatStatusResponse{Status: "processing"}, nil
		}
		return nil, toAPIError(err)
	}

	var artifact models.ChatArtifact
	if err := json.Unmarshal(body, &artifact); err != nil {
		return nil, toAPIError(fmt.Errorf("corrupt chat artifact: %w", err))
	}

	// single consumption, whatever the artifact contained
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "chat artifact cleanup failed", "chat_job_id", chatJobID, "error", logging.SanitizeError(err, 0))
	}

	if artifact.Failure != nil {
		s.audit.record(ctx, userID, auditChatDelivered, chatJobID, artifact.Failure.Code)
		return nil, &APIError{Code: CodeProcessingError, Message: artifact.Failure.Message}
	}

	s.audit.record(ctx, userID, auditChatDelivered, chatJobID, "")
	return &ChatStatusResponse{Status: "complete", Response: artifact.Response}, nil
}
