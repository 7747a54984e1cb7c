// Package repomanager wires repositories to database handles and owns
// schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/m00n5h075/serenya-sub003/internal/dbx"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/auditrepo"
	"github.com/m00n5h075/serenya-sub003/internal/server/repositories/jobrepo"
)

// RepositoryManager builds repositories bound to a DBTX, so services can
// hand repositories either the pooled connection or a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Jobs(db dbx.DBTX) jobrepo.Repository
	Audit(db dbx.DBTX) auditrepo.Repository
}
