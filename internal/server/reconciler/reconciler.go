// Package reconciler persists credentials rotated by the OAuth client while a
// request is in flight, without blocking or failing that request.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/metrics"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/penter405/brainsync/internal/server/repositories/identities"
)

const DefaultTimeout = 10 * time.Second

type Sealer interface {
	Seal(plaintext string) (*cryptox.Envelope, error)
}

type Reconciler struct {
	vault   Sealer
	repo    identities.Repository
	logger  logging.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

func New(vault Sealer, repo identities.Repository, logger logging.Logger, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Reconciler{
		vault:   vault,
		repo:    repo,
		logger:  logger.With("module", "reconciler"),
		timeout: timeout,
	}
}

// Wait blocks until every queued write has been attempted.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Scope opens a rotation handler for one identity and one request. Its
// Notify method is what gets handed to the Drive client.
func (r *Reconciler) Scope(ctx context.Context, identityID string) *Scope {
	return &Scope{r: r, ctx: ctx, identityID: identityID}
}

// Scope serializes the writes of one request. Writes are applied in the
// order rotations were observed, by a single goroutine at a time.
type Scope struct {
	r          *Reconciler
	ctx        context.Context
	identityID string

	mu      sync.Mutex
	pending []models.IdentityUpdate
	running bool
}

// Notify seals the rotated tokens and queues a partial update. The refresh
// token envelope is only part of the update when a new one was issued.
func (s *Scope) Notify(rot drive.Rotation) {
	metrics.IncrementRotationObserved()

	u, err := s.seal(rot)
	if err != nil {
		metrics.IncrementRotationWrite(false)
		s.r.logger.Error(s.ctx, "sealing rotated credentials failed",
			"identity_id", s.identityID, "error", err)
		return
	}

	s.mu.Lock()
	s.pending = append(s.pending, u)
	if !s.running {
		s.running = true
		s.r.wg.Add(1)
		go s.drain()
	}
	s.mu.Unlock()
}

func (s *Scope) seal(rot drive.Rotation) (models.IdentityUpdate, error) {
	var u models.IdentityUpdate

	access, err := s.r.vault.Seal(rot.AccessToken)
	if err != nil {
		return u, fmt.Errorf("access token: %w", err)
	}
	u.AccessToken = access

	if !rot.Expiry.IsZero() {
		expiry := rot.Expiry
		u.AccessTokenExpiry = &expiry
	}

	if rot.RefreshToken != "" {
		refresh, err := s.r.vault.Seal(rot.RefreshToken)
		if err != nil {
			return u, fmt.Errorf("refresh token: %w", err)
		}
		u.RefreshToken = refresh
	}

	return u, nil
}

func (s *Scope) drain() {
	defer s.r.wg.Done()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		u := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.persist(u)
	}
}

func (s *Scope) persist(u models.IdentityUpdate) {
	// The request may already be finished; the write must still happen.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), s.r.timeout)
	defer cancel()

	if err := s.r.repo.Update(ctx, s.identityID, u); err != nil {
		metrics.IncrementRotationWrite(false)
		s.r.logger.Error(ctx, "persisting rotated credentials failed",
			"identity_id", s.identityID,
			"refresh_rotated", u.RefreshToken != nil,
			"error", fmt.Errorf("%w: %w", common.ErrReconcile, err))
		return
	}

	metrics.IncrementRotationWrite(true)
	s.r.logger.Info(ctx, "rotated credentials persisted",
		"identity_id", s.identityID, "refresh_rotated", u.RefreshToken != nil)
}
