// Package auditrepo provides the append-only PostgreSQL repository for
// audit events. Events are never updated or deleted by the application.
package auditrepo

import (
	"context"

	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, ev *models.AuditEvent) error
}
