package audit

import (
	"context"
	"fmt"

	"github.com/penter405/brainsync/internal/dbx"
	"github.com/penter405/brainsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	query :=
		`INSERT INTO audit_log (id, identity_id, action, status, file_id, error_message, ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	_, err := r.db.ExecContext(ctx, query, e.ID, e.IdentityID, string(e.Action), string(e.Status),
		e.FileID, e.ErrorMessage, e.IP, e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
