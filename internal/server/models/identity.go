// Package models defines server-side data models persisted in the database.
package models

import (
	"time"

	"github.com/penter405/brainsync/internal/cryptox"
)

// Identity is the persisted record of one external (Google) identity.
type Identity struct {
	// IdentityID is the provider's stable subject id; unique.
	IdentityID string
	Email      string
	Name       string
	Picture    string

	// AccessToken and RefreshToken are sealed by the credential vault.
	// Either may be nil for records created before a token was issued.
	AccessToken  *cryptox.Envelope
	RefreshToken *cryptox.Envelope
	// AccessTokenExpiry is informational; zero means unknown.
	AccessTokenExpiry time.Time

	// Sync target on the file store.
	DriveFileID     string
	DriveFileName   string
	DriveFolderName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCredentials reports whether both envelopes are present.
func (i *Identity) HasCredentials() bool {
	return i.AccessToken != nil && i.RefreshToken != nil
}

// IdentityUpdate is a partial update. Nil fields are left as persisted,
// which is what keeps a refresh token alive when the provider only rotates
// the access token.
type IdentityUpdate struct {
	Email             *string
	Name              *string
	Picture           *string
	AccessToken       *cryptox.Envelope
	RefreshToken      *cryptox.Envelope
	AccessTokenExpiry *time.Time
	DriveFileID       *string
	DriveFileName     *string
	DriveFolderName   *string
}

// Apply merges u into i. Used by in-memory stores; the SQL store does the
// same merge with COALESCE.
func (u IdentityUpdate) Apply(i *Identity) {
	setIf(&i.Email, u.Email)
	setIf(&i.Name, u.Name)
	setIf(&i.Picture, u.Picture)
	setIf(&i.DriveFileID, u.DriveFileID)
	setIf(&i.DriveFileName, u.DriveFileName)
	setIf(&i.DriveFolderName, u.DriveFolderName)
	if u.AccessToken != nil {
		env := *u.AccessToken
		i.AccessToken = &env
	}
	if u.RefreshToken != nil {
		env := *u.RefreshToken
		i.RefreshToken = &env
	}
	if u.AccessTokenExpiry != nil {
		i.AccessTokenExpiry = *u.AccessTokenExpiry
	}
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Ptr is a small helper for building IdentityUpdate literals.
func Ptr[T any](v T) *T {
	return &v
}
