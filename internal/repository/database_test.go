package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-muro/internal/domain"
)

func TestClockIsStrictlyIncreasing(t *testing.T) {
	frozen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	clock := NewClockWith(func() time.Time { return frozen })

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, frozen, first)
	assert.True(t, second.After(first))
	assert.True(t, third.After(second))
}

func TestClockReturnsUTC(t *testing.T) {
	local := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	clock := NewClockWith(func() time.Time { return local })
	assert.Equal(t, time.UTC, clock.Now().Location())
}

func TestOpenCreatesSchemaOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.True(t, db.Migrator().HasTable(&domain.Conversation{}))
	assert.True(t, db.Migrator().HasTable(&domain.Message{}))
}
