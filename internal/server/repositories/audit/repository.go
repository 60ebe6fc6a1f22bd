// Package audit is the append-only trail of security-relevant actions.
// There is no update or delete path.
package audit

import (
	"context"

	"github.com/penter405/brainsync/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}
