package common

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(16)
	require.NoError(t, err)
	assert.Len(t, s, 32)

	_, err = hex.DecodeString(s)
	assert.NoError(t, err)

	empty, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGenerateRandByteArray(t *testing.T) {
	a := GenerateRandByteArray(32)
	b := GenerateRandByteArray(32)

	assert.Len(t, a, 32)
	assert.Len(t, b, 32)
	assert.NotEqual(t, a, b)
}

func TestWipeByteArray(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

func TestErrTokenExpired_IsInvalidToken(t *testing.T) {
	assert.True(t, errors.Is(ErrTokenExpired, ErrInvalidToken))
	assert.False(t, errors.Is(ErrInvalidToken, ErrTokenExpired))
}
