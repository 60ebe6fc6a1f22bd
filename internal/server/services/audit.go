// Package services contains server-side business logic: the login flow, the
// session surface and the Drive sync operations.
package services

import (
	"context"
	"database/sql"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/metrics"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/penter405/brainsync/internal/server/repositories/audit"
	"github.com/penter405/brainsync/internal/server/repositories/repomanager"
)

const maxAuditMessage = 500

// AuditRecord is what callers know about an action; the recorder fills in
// the id and timestamp.
type AuditRecord struct {
	IdentityID string
	Action     models.AuditAction
	FileID     string
	IP         string
	Err        error
}

// AuditRecorder appends to the primary trail and any mirrors. Failures are
// logged and counted, never returned.
type AuditRecorder struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	mirrors     []audit.Repository
	logger      logging.Logger
	now         func() time.Time
}

func NewAuditRecorder(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, mirrors ...audit.Repository) *AuditRecorder {
	return &AuditRecorder{
		db:          db,
		repomanager: m,
		mirrors:     mirrors,
		logger:      logger.With("module", "audit"),
		now:         time.Now,
	}
}

func (a *AuditRecorder) Record(ctx context.Context, rec AuditRecord) {
	e := &models.AuditEntry{
		ID:         uuid.NewString(),
		IdentityID: rec.IdentityID,
		Action:     rec.Action,
		Status:     models.StatusSuccess,
		FileID:     rec.FileID,
		IP:         rec.IP,
		Timestamp:  a.now().UTC(),
	}
	if rec.Err != nil {
		e.Status = models.StatusError
		e.ErrorMessage = truncate(rec.Err.Error(), maxAuditMessage)
	}

	sinks := append(audit.Fanout{a.repomanager.Audit(a.db)}, a.mirrors...)
	if err := sinks.Append(ctx, e); err != nil {
		metrics.IncrementAuditFailure()
		a.logger.Warn(ctx, "audit append failed",
			"identity_id", e.IdentityID, "action", string(e.Action), "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
