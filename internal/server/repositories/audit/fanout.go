package audit

import (
	"context"
	"errors"

	"github.com/penter405/brainsync/internal/server/models"
)

// Fanout appends to every sink and joins their errors. A failing sink
// does not stop the others.
type Fanout []Repository

func (f Fanout) Append(ctx context.Context, e *models.AuditEntry) error {
	var errs []error
	for _, r := range f {
		if err := r.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
