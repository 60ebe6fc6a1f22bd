package models

import (
	"testing"
	"time"

	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/stretchr/testify/assert"
)

func TestIdentityUpdate_Apply(t *testing.T) {
	refresh := &cryptox.Envelope{IV: "01", AuthTag: "02", Encrypted: "03"}
	i := &Identity{
		IdentityID:   "g-1",
		Email:        "old@example.com",
		Name:         "Old",
		AccessToken:  &cryptox.Envelope{IV: "aa", AuthTag: "bb", Encrypted: "cc"},
		RefreshToken: refresh,
		DriveFileID:  "file-1",
	}

	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	access := &cryptox.Envelope{IV: "dd", AuthTag: "ee", Encrypted: "ff"}
	IdentityUpdate{
		Name:              Ptr("New"),
		AccessToken:       access,
		AccessTokenExpiry: &expiry,
	}.Apply(i)

	assert.Equal(t, "New", i.Name)
	assert.Equal(t, "old@example.com", i.Email)
	assert.Equal(t, *access, *i.AccessToken)
	assert.NotSame(t, access, i.AccessToken)
	assert.Equal(t, &cryptox.Envelope{IV: "01", AuthTag: "02", Encrypted: "03"}, i.RefreshToken)
	assert.Equal(t, expiry, i.AccessTokenExpiry)
	assert.Equal(t, "file-1", i.DriveFileID)
}

func TestIdentity_HasCredentials(t *testing.T) {
	env := &cryptox.Envelope{}
	assert.True(t, (&Identity{AccessToken: env, RefreshToken: env}).HasCredentials())
	assert.False(t, (&Identity{AccessToken: env}).HasCredentials())
	assert.False(t, (&Identity{}).HasCredentials())
}
