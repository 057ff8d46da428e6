package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/models"
)

func searchFixture(t *testing.T) *GraphStore {
	t.Helper()
	s := testStore(t)
	_, err := s.CreateEntities([]models.Entity{
		{Name: "John", EntityType: "person", Observations: []string{"works at ACME"}},
		{Name: "HQ", EntityType: "Acme_Corp", Observations: []string{"main office"}},
		{Name: "Jane", EntityType: "person", Observations: []string{"freelancer"}},
	})
	require.NoError(t, err)
	return s
}

func TestSearchNodesMatchesAnyField(t *testing.T) {
	s := searchFixture(t)

	// Case-insensitive: hits the entity type on HQ and an observation on John.
	got := s.SearchNodes("acme")
	require.Len(t, got, 2)
	assert.Equal(t, "John", got[0].Name)
	assert.Equal(t, "HQ", got[1].Name)
}

func TestSearchNodesMatchesName(t *testing.T) {
	s := searchFixture(t)

	got := s.SearchNodes("jane")
	require.Len(t, got, 1)
	assert.Equal(t, "Jane", got[0].Name)
	// Matching selects whole entities; observations come back intact.
	assert.Equal(t, []string{"freelancer"}, got[0].Observations)
}

func TestSearchNodesNoMatch(t *testing.T) {
	s := searchFixture(t)
	assert.Empty(t, s.SearchNodes("zebra"))
}

func TestSearchNodesEmptyQueryMatchesAll(t *testing.T) {
	s := searchFixture(t)
	assert.Len(t, s.SearchNodes(""), 3)
}
