package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/penter405/brainsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "abc", "abc"},
		{"exact", strings.Repeat("a", 500), strings.Repeat("a", 500)},
		{"ascii cut", strings.Repeat("a", 600), strings.Repeat("a", 500)},
		{"rune straddles limit", strings.Repeat("a", 499) + "讀取失敗", strings.Repeat("a", 499)},
		{"rune ends at limit", strings.Repeat("a", 497) + "讀取", strings.Repeat("a", 497) + "讀"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, maxAuditMessage)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestRecord_TruncatesMultiByteMessage(t *testing.T) {
	f := newFixture(t)

	msg := strings.Repeat("x", 498) + "權杖已過期或已撤銷"
	f.recorder.Record(context.Background(), AuditRecord{
		IdentityID: "u1",
		Action:     models.ActionLoad,
		Err:        errors.New(msg),
	})

	entries := f.auditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusError, entries[0].Status)
	assert.True(t, utf8.ValidString(entries[0].ErrorMessage))
	assert.LessOrEqual(t, len(entries[0].ErrorMessage), maxAuditMessage)
	assert.Equal(t, strings.Repeat("x", 498), entries[0].ErrorMessage)
}
