package repomanager

import (
	"context"
	"database/sql"

	"github.com/penter405/brainsync/internal/dbx"
	"github.com/penter405/brainsync/internal/server/repositories/audit"
	"github.com/penter405/brainsync/internal/server/repositories/identities"
)

// MemoryDSN selects the in-memory manager instead of PostgreSQL.
const MemoryDSN = "memory"

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Identities(db dbx.DBTX) identities.Repository
	Audit(db dbx.DBTX) audit.Repository
}
