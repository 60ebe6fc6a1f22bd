// Package identities stores one record per external identity, holding the
// sealed OAuth credentials and the sync target.
package identities

import (
	"context"

	"github.com/penter405/brainsync/internal/server/models"
)

// Repository is the identity record store. Writes are last-write-wins per
// identity id; no version checks are made.
type Repository interface {
	// FindByIdentityID returns common.ErrorNotFound when no record exists.
	FindByIdentityID(ctx context.Context, identityID string) (*models.Identity, error)
	// Upsert atomically inserts or merges u into the record keyed by identityID.
	Upsert(ctx context.Context, identityID string, u models.IdentityUpdate) (*models.Identity, error)
	// Update merges u into an existing record and returns
	// common.ErrorNotFound if there is none; it never creates one.
	Update(ctx context.Context, identityID string, u models.IdentityUpdate) error
	// Delete removes the record, common.ErrorNotFound if absent.
	Delete(ctx context.Context, identityID string) error
}
