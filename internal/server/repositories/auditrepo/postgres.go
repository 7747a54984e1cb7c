package auditrepo

import (
	"context"
	"fmt"

	"github.com/m00n5h075/serenya-sub003/internal/dbx"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, ev *models.AuditEvent) error {
	query := `
		INSERT INTO audit_events (id, user_hash, action, resource_id, classification, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.UserHash, ev.Action, ev.ResourceID, ev.Classification, ev.Details, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
