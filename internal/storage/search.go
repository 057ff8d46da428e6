package storage

import (
	"strings"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/models"
)

// SearchNodes returns every entity whose name, type, or any observation
// contains the query as a case-insensitive substring. Matching selects
// entities whole; observations within a match are never filtered. An empty
// query matches everything, since the empty string is a substring of any
// text.
func (s *GraphStore) SearchNodes(query string) []models.Entity {
	q := strings.ToLower(query)

	s.mu.Lock()
	defer s.mu.Unlock()

	matches := make([]models.Entity, 0)
	for _, e := range s.graph.Entities {
		if entityMatches(e, q) {
			matches = append(matches, copyEntity(e))
		}
	}
	return matches
}

func entityMatches(e models.Entity, q string) bool {
	if strings.Contains(strings.ToLower(e.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(e.EntityType), q) {
		return true
	}
	for _, obs := range e.Observations {
		if strings.Contains(strings.ToLower(obs), q) {
			return true
		}
	}
	return false
}
