package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/logging"
	"github.com/penter405/brainsync/internal/server/auth"
	"github.com/penter405/brainsync/internal/server/drive"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/penter405/brainsync/internal/server/repositories/repomanager"
)

// OAuthProvider is the identity provider side of *drive.Provider.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*drive.Credentials, error)
	UserInfo(ctx context.Context, accessToken string) (*drive.UserInfo, error)
}

// Profile is the informational part of an identity shown to the client.
type Profile struct {
	Name         string
	Email        string
	Picture      string
	HasDriveFile bool
}

// AuthService drives the OAuth login flow and the session surface.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    OAuthProvider
	vault       *cryptox.Vault
	sessions    *auth.SessionCodec
	states      *auth.StateSigner
	audit       *AuditRecorder
	logger      logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, provider OAuthProvider, vault *cryptox.Vault,
	sessions *auth.SessionCodec, states *auth.StateSigner, recorder *AuditRecorder, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		provider:    provider,
		vault:       vault,
		sessions:    sessions,
		states:      states,
		audit:       recorder,
		logger:      logger.With("module", "auth"),
	}
}

// BeginLogin returns the provider URL to redirect to and the signed state
// token to store in the state cookie.
func (s *AuthService) BeginLogin() (authURL, stateToken string, err error) {
	state, token, err := s.states.Issue()
	if err != nil {
		return "", "", err
	}
	return s.provider.AuthCodeURL(state), token, nil
}

// CompleteLogin finishes the OAuth callback and returns a session token.
// A state that does not match the state cookie yields common.ErrInvalidToken.
func (s *AuthService) CompleteLogin(ctx context.Context, code, state, stateToken, ip string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: missing authorization code", common.ErrorValidation)
	}
	if err := s.states.Verify(stateToken, state); err != nil {
		return "", err
	}

	creds, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return "", err
	}
	info, err := s.provider.UserInfo(ctx, creds.AccessToken)
	if err != nil {
		return "", err
	}

	u := models.IdentityUpdate{
		Email:   models.Ptr(info.Email),
		Name:    models.Ptr(info.Name),
		Picture: models.Ptr(info.Picture),
	}
	if u.AccessToken, err = s.vault.Seal(creds.AccessToken); err != nil {
		return "", err
	}
	if !creds.Expiry.IsZero() {
		u.AccessTokenExpiry = models.Ptr(creds.Expiry)
	}
	// Keep the stored refresh token unless a new one was issued.
	if creds.RefreshToken != "" {
		if u.RefreshToken, err = s.vault.Seal(creds.RefreshToken); err != nil {
			return "", err
		}
	}

	if _, err := s.repomanager.Identities(s.db).Upsert(ctx, info.ID, u); err != nil {
		s.audit.Record(ctx, AuditRecord{IdentityID: info.ID, Action: models.ActionLogin, IP: ip, Err: err})
		return "", fmt.Errorf("saving identity: %w", err)
	}

	s.audit.Record(ctx, AuditRecord{IdentityID: info.ID, Action: models.ActionLogin, IP: ip})
	s.logger.Info(ctx, "login completed", "identity_id", info.ID, "refresh_issued", creds.RefreshToken != "")

	return s.sessions.Issue(info.ID)
}

// Me returns the profile for identityID, common.ErrorNotFound if the record
// is gone.
func (s *AuthService) Me(ctx context.Context, identityID string) (*Profile, error) {
	rec, err := s.repomanager.Identities(s.db).FindByIdentityID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		Name:         rec.Name,
		Email:        rec.Email,
		Picture:      rec.Picture,
		HasDriveFile: rec.DriveFileID != "",
	}, nil
}

// Logout only records the event; sessions are stateless and cannot be
// revoked server side.
func (s *AuthService) Logout(ctx context.Context, identityID, ip string) {
	s.audit.Record(ctx, AuditRecord{IdentityID: identityID, Action: models.ActionLogout, IP: ip})
}

func (s *AuthService) DeleteAccount(ctx context.Context, identityID, ip string) error {
	err := s.repomanager.Identities(s.db).Delete(ctx, identityID)
	s.audit.Record(ctx, AuditRecord{IdentityID: identityID, Action: models.ActionDelete, IP: ip, Err: err})
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("deleting identity: %w", err)
	}
	return err
}
