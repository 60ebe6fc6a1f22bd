package identities

import (
	"context"
	"testing"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_UpsertMerges(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	refresh := &cryptox.Envelope{IV: "r1", AuthTag: "r2", Encrypted: "r3"}
	_, err := r.Upsert(ctx, "g-1", models.IdentityUpdate{
		Email:        models.Ptr("a@example.com"),
		AccessToken:  &cryptox.Envelope{IV: "a1", AuthTag: "a2", Encrypted: "a3"},
		RefreshToken: refresh,
	})
	require.NoError(t, err)

	got, err := r.Upsert(ctx, "g-1", models.IdentityUpdate{
		AccessToken: &cryptox.Envelope{IV: "b1", AuthTag: "b2", Encrypted: "b3"},
	})
	require.NoError(t, err)

	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, "b1", got.AccessToken.IV)
	assert.Equal(t, *refresh, *got.RefreshToken)
}

func TestMemoryRepository_UpdateDoesNotCreate(t *testing.T) {
	r := NewMemoryRepository()

	err := r.Update(context.Background(), "ghost", models.IdentityUpdate{Name: models.Ptr("x")})
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.FindByIdentityID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	_, err := r.Upsert(ctx, "g-1", models.IdentityUpdate{
		AccessToken: &cryptox.Envelope{IV: "a1", AuthTag: "a2", Encrypted: "a3"},
	})
	require.NoError(t, err)

	got, err := r.FindByIdentityID(ctx, "g-1")
	require.NoError(t, err)
	got.AccessToken.IV = "mutated"

	again, err := r.FindByIdentityID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "a1", again.AccessToken.IV)
}

func TestMemoryRepository_Delete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()

	_, err := r.Upsert(ctx, "g-1", models.IdentityUpdate{})
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, "g-1"))
	assert.ErrorIs(t, r.Delete(ctx, "g-1"), common.ErrorNotFound)
}
