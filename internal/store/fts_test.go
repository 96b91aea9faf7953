package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arduino-watcher/internal/domain"
)

func newTestStoreWithIndex(t *testing.T) *Store {
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "knowledge_fts.db")
	require.NoError(t, s.OpenKnowledgeIndex(path))
	t.Cleanup(func() { s.CloseKnowledgeIndex() })
	return s
}

func TestCreateAndSearchKnowledge(t *testing.T) {
	s := newTestStoreWithIndex(t)

	require.NoError(t, s.CreateKnowledge(&domain.KnowledgeEntry{
		Title:   "Moutai dividend policy",
		Content: "Kweichow Moutai typically distributes dividends in the spring.",
	}))
	require.NoError(t, s.CreateKnowledge(&domain.KnowledgeEntry{
		Title:   "Market calendar",
		Content: "A-share markets are closed for Spring Festival.",
	}))

	results, err := s.SearchKnowledge("Moutai", 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Moutai dividend policy", results[0].Title)
}

func TestSearchKnowledgeWithoutIndexConfigured(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SearchKnowledge("anything", 10)
	assert.Error(t, err)

	err = s.CreateKnowledge(&domain.KnowledgeEntry{Title: "x", Content: "y"})
	assert.Error(t, err)
}

func TestCloseKnowledgeIndexWithoutIndexIsNoOp(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.CloseKnowledgeIndex())
}
