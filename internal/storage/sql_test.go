package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
)

func TestSQLiteDraftStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteDraftStore(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	var e models.Entities
	e.Set(models.AttrJobTitle, "Data analyst")
	e.Set(models.AttrLocation, "Lisbon")

	id, err := s.SaveDraft(ctx, e)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	drafts, err := s.ListDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, id, drafts[0].ID)
	assert.True(t, drafts[0].Entities.Equal(e))
	_, ok := drafts[0].Entities.Get(models.AttrSkills)
	assert.False(t, ok)
}

func TestRebind(t *testing.T) {
	pg := &SQLDraftStore{dialect: DialectPostgres}
	lite := &SQLDraftStore{dialect: DialectSQLite}

	assert.Equal(t, "VALUES ($1, $2, $3)", pg.rebind("VALUES (?, ?, ?)"))
	assert.Equal(t, "VALUES (?, ?, ?)", lite.rebind("VALUES (?, ?, ?)"))
}
