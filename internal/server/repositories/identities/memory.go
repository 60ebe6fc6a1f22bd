package identities

import (
	"context"
	"sync"
	"time"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/server/models"
)

// MemoryRepository keeps identities in a map. It backs the "memory"
// database mode used for local development and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*models.Identity
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*models.Identity), now: time.Now}
}

func (r *MemoryRepository) FindByIdentityID(_ context.Context, identityID string) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[identityID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(rec), nil
}

func (r *MemoryRepository) Upsert(_ context.Context, identityID string, u models.IdentityUpdate) (*models.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	rec, ok := r.records[identityID]
	if !ok {
		rec = &models.Identity{IdentityID: identityID, CreatedAt: now}
		r.records[identityID] = rec
	}
	u.Apply(rec)
	rec.UpdatedAt = now

	return clone(rec), nil
}

func (r *MemoryRepository) Update(_ context.Context, identityID string, u models.IdentityUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[identityID]
	if !ok {
		return common.ErrorNotFound
	}
	u.Apply(rec)
	rec.UpdatedAt = r.now()

	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, identityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[identityID]; !ok {
		return common.ErrorNotFound
	}
	delete(r.records, identityID)
	return nil
}

func clone(rec *models.Identity) *models.Identity {
	c := *rec
	if rec.AccessToken != nil {
		env := *rec.AccessToken
		c.AccessToken = &env
	}
	if rec.RefreshToken != nil {
		env := *rec.RefreshToken
		c.RefreshToken = &env
	}
	return &c
}
