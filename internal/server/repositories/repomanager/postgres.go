package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/m00n5h075/serenya-sub003/internal/dbx"
	"github.com/m00n5h075/serenya-sub003/internal/server/migrations"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/auditrepo"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/jobrepo"
)

type PostgresRepositoryManager struct {
}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Jobs(db dbx.DBTX) jobrepo.Repository {
	return jobrepo.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Audit(db dbx.DBTX) auditrepo.Repository {
	return auditrepo.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return err
	}

	return nil
}
