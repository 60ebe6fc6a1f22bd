package audit

import (
	"context"
	"sync"

	"github.com/penter405/brainsync/internal/server/models"
)

type MemoryRepository struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Append(_ context.Context, e *models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *e)
	return nil
}

// Entries returns a snapshot of everything appended so far.
func (r *MemoryRepository) Entries() []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
