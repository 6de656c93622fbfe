package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/jobpost-bot/internal/models"
)

func TestFileDraftStoreAppends(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "saved_jobs.json")
	s := NewFileDraftStore(path)

	var first, second models.Entities
	first.Set(models.AttrJobTitle, "Backend developer")
	second.Set(models.AttrJobTitle, "QA engineer")

	id1, err := s.SaveDraft(ctx, first)
	require.NoError(t, err)
	id2, err := s.SaveDraft(ctx, second)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	drafts, err := s.ListDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, id1, drafts[0].ID)
	assert.True(t, drafts[1].Entities.Equal(second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "QA engineer", raw[1]["job_title"])
	assert.Nil(t, raw[1]["location"])
}

func TestFileDraftStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_jobs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileDraftStore(path).SaveDraft(context.Background(), models.Entities{})
	assert.Error(t, err)
}
