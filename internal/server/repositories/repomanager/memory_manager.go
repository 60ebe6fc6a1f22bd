package repomanager

import (
	"context"
	"database/sql"

	"github.com/penter405/brainsync/internal/dbx"
	"github.com/penter405/brainsync/internal/server/repositories/audit"
	"github.com/penter405/brainsync/internal/server/repositories/identities"
)

// InMemoryRepositoryManager ignores the connection handle and hands out the
// same process-local repositories on every call.
type InMemoryRepositoryManager struct {
	identities *identities.MemoryRepository
	audit      *audit.MemoryRepository
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Identities(dbx.DBTX) identities.Repository {
	return m.identities
}

func (m *InMemoryRepositoryManager) Audit(dbx.DBTX) audit.Repository {
	return m.audit
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{
		identities: identities.NewMemoryRepository(),
		audit:      audit.NewMemoryRepository(),
	}
}
