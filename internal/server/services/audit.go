package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/m00n5h075/serenya-sub003/internal/logging"
	"github.com/m00n5h075/serenya-sub003/internal/server/fieldcrypt"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/repomanager"
)

// Audit actions recorded by the services.
const (
	auditDocumentUploaded  = "document_uploaded"
	auditAnalysisStarted   = "analysis_started"
	auditAnalysisCompleted = "analysis_completed"
	auditAnalysisFailed    = "analysis_failed"
	auditJobRetried        = "job_retried"
	auditResultAccessed    = "result_accessed"
	auditChatSubmitted     = "chat_submitted"
	auditChatDelivered     = "chat_delivered"

	classificationPHI = "medical_phi"
)

// auditTrail appends audit events on behalf of the services. Writes are
// best-effort: a failed append is logged and swallowed so audit problems
// never mask the primary outcome. User ids are stored as salted hashes.
type auditTrail struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger
	salt   []byte
	now    func() time.Time
}

func (a *auditTrail) record(ctx context.Context, userID, action, resourceID, details string) {
	ev := &models.AuditEvent{
		ID:             uuid.NewString(),
		UserHash:       fieldcrypt.HashWithSalt(userID, a.salt),
		Action:         action,
		ResourceID:     resourceID,
		Classification: classificationPHI,
		Details:        details,
		CreatedAt:      a.now(),
	}
	if err := a.repos.Audit(a.db).Append(ctx, ev); err != nil {
		a.logger.Warn(ctx, "audit append failed", "action", action, "error", err.Error())
	}
}
