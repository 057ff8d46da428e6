package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/models"
)

// ErrEntityNotFound is returned by AddObservations when an update names an
// entity that is not in the graph. Delete operations never return it; they
// skip unknown names silently.
var ErrEntityNotFound = errors.New("entity not found")

// GraphStore owns the knowledge graph for the process. All access goes
// through its methods; every successful mutation rewrites the backing file
// before returning, so callers observe either a durable mutation or an error.
type GraphStore struct {
	mu     sync.Mutex
	path   string
	graph  models.KnowledgeGraph
	logger *zap.Logger
}

// ObservationUpdate names an entity and the observation texts to append.
type ObservationUpdate struct {
	EntityName string
	Contents   []string
}

// ObservationDeletion names an entity and the observation texts to remove.
type ObservationDeletion struct {
	EntityName   string
	Observations []string
}

// Open creates a GraphStore backed by the file at path. If the file exists
// it is adopted as the starting graph; if it is missing, unreadable, or not
// valid JSON, the store starts empty. A bad file is logged, never fatal:
// the server must come up even when the snapshot is corrupt.
func Open(path string, logger *zap.Logger) *GraphStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &GraphStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no snapshot found, starting with an empty graph", zap.String("path", path))
	case err != nil:
		logger.Warn("snapshot unreadable, starting with an empty graph",
			zap.String("path", path), zap.Error(err))
	default:
		var g models.KnowledgeGraph
		if err := json.Unmarshal(data, &g); err != nil {
			logger.Warn("snapshot corrupt, starting with an empty graph",
				zap.String("path", path), zap.Error(err))
		} else {
			s.graph = g
			logger.Info("snapshot loaded",
				zap.String("path", path),
				zap.Int("entities", len(g.Entities)),
				zap.Int("relations", len(g.Relations)))
		}
	}
	return s
}

// Path returns the backing file path.
func (s *GraphStore) Path() string {
	return s.path
}

// persist writes the full graph to the backing file as pretty-printed JSON.
// Caller must hold s.mu.
func (s *GraphStore) persist() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot dir")
		}
	}
	data, err := json.MarshalIndent(s.graph, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		s.logger.Error("snapshot write failed", zap.String("path", s.path), zap.Error(err))
		return errors.Wrap(err, "write snapshot")
	}
	return nil
}

// CreateEntities adds the given entities, skipping any whose name is already
// taken. Within a new entity, duplicate observation strings are dropped so
// the per-entity uniqueness rule holds from the start. Returns the names
// actually inserted, in input order.
func (s *GraphStore) CreateEntities(entities []models.Entity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]string, 0, len(entities))
	for _, e := range entities {
		if s.findEntity(e.Name) >= 0 {
			continue
		}
		e.Observations = dedup(e.Observations)
		s.graph.Entities = append(s.graph.Entities, e)
		created = append(created, e.Name)
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.logger.Debug("entities created", zap.Int("requested", len(entities)), zap.Int("created", len(created)))
	return created, nil
}

// CreateRelations adds the given relations, skipping exact-triple duplicates.
// Endpoints are not checked against the entity set. Returns the number of
// relations actually inserted.
func (s *GraphStore) CreateRelations(relations []models.Relation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := 0
	for _, r := range relations {
		if s.findRelation(r) >= 0 {
			continue
		}
		s.graph.Relations = append(s.graph.Relations, r)
		created++
	}

	if err := s.persist(); err != nil {
		return 0, err
	}
	s.logger.Debug("relations created", zap.Int("requested", len(relations)), zap.Int("created", created))
	return created, nil
}

// AddObservations appends observation texts to existing entities, skipping
// strings already present verbatim on that entity. Unlike the delete
// operations this one is strict: if any update names a missing entity the
// whole batch fails with ErrEntityNotFound and nothing is persisted.
// Returns the count of newly appended observations per entity.
func (s *GraphStore) AddObservations(updates []ObservationUpdate) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch up front so a failure cannot leave a
	// half-applied batch in memory.
	for _, u := range updates {
		if s.findEntity(u.EntityName) < 0 {
			return nil, errors.Wrapf(ErrEntityNotFound, "entity with name %s not found", u.EntityName)
		}
	}

	added := make(map[string]int, len(updates))
	for _, u := range updates {
		e := &s.graph.Entities[s.findEntity(u.EntityName)]
		count := 0
		for _, content := range u.Contents {
			if slices.Contains(e.Observations, content) {
				continue
			}
			e.Observations = append(e.Observations, content)
			count++
		}
		added[u.EntityName] += count
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.logger.Debug("observations added", zap.Int("entities", len(updates)))
	return added, nil
}

// DeleteEntities removes each entity whose name matches, cascading to every
// relation that references a removed name as source or target. Unknown
// names are ignored. Returns the number of entities removed.
func (s *GraphStore) DeleteEntities(names []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doomed := make(map[string]bool, len(names))
	for _, name := range names {
		doomed[name] = true
	}

	kept := s.graph.Entities[:0]
	deleted := 0
	for _, e := range s.graph.Entities {
		if doomed[e.Name] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.graph.Entities = kept

	if deleted > 0 {
		keptRels := s.graph.Relations[:0]
		for _, r := range s.graph.Relations {
			if doomed[r.From] || doomed[r.To] {
				continue
			}
			keptRels = append(keptRels, r)
		}
		s.graph.Relations = keptRels
	}

	if err := s.persist(); err != nil {
		return 0, err
	}
	s.logger.Debug("entities deleted", zap.Int("requested", len(names)), zap.Int("deleted", deleted))
	return deleted, nil
}

// DeleteObservations removes the listed observation strings from their
// entities, exact match only. Deletions naming a missing entity are skipped
// and contribute no entry to the result. Returns per-entity removal counts
// for the entities that exist.
func (s *GraphStore) DeleteObservations(deletions []ObservationDeletion) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := make(map[string]int, len(deletions))
	for _, d := range deletions {
		idx := s.findEntity(d.EntityName)
		if idx < 0 {
			continue
		}
		e := &s.graph.Entities[idx]
		before := len(e.Observations)
		kept := e.Observations[:0]
		for _, obs := range e.Observations {
			if slices.Contains(d.Observations, obs) {
				continue
			}
			kept = append(kept, obs)
		}
		e.Observations = kept
		deleted[d.EntityName] += before - len(kept)
	}

	if err := s.persist(); err != nil {
		return nil, err
	}
	s.logger.Debug("observations deleted", zap.Int("entities", len(deletions)))
	return deleted, nil
}

// DeleteRelations removes each relation matching an exact triple from the
// input. Non-matching triples are ignored. Returns the number removed.
func (s *GraphStore) DeleteRelations(relations []models.Relation) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, r := range relations {
		if idx := s.findRelation(r); idx >= 0 {
			s.graph.Relations = append(s.graph.Relations[:idx], s.graph.Relations[idx+1:]...)
			deleted++
		}
	}

	if err := s.persist(); err != nil {
		return 0, err
	}
	s.logger.Debug("relations deleted", zap.Int("requested", len(relations)), zap.Int("deleted", deleted))
	return deleted, nil
}

// ReadGraph returns a copy of the full graph. The copy is safe to hold and
// serialize after the store moves on.
func (s *GraphStore) ReadGraph() models.KnowledgeGraph {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := models.KnowledgeGraph{
		Entities:  make([]models.Entity, len(s.graph.Entities)),
		Relations: make([]models.Relation, len(s.graph.Relations)),
	}
	for i, e := range s.graph.Entities {
		g.Entities[i] = copyEntity(e)
	}
	copy(g.Relations, s.graph.Relations)
	return g
}

// OpenNodes returns the entities whose names appear in the input set,
// preserving the store's internal order. Names with no match are absent
// from the result.
func (s *GraphStore) OpenNodes(names []string) []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	matches := make([]models.Entity, 0, len(names))
	for _, e := range s.graph.Entities {
		if wanted[e.Name] {
			matches = append(matches, copyEntity(e))
		}
	}
	return matches
}

// findEntity returns the index of the entity with the given name, or -1.
// Caller must hold s.mu.
func (s *GraphStore) findEntity(name string) int {
	for i, e := range s.graph.Entities {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// findRelation returns the index of the relation with the exact same triple,
// or -1. Caller must hold s.mu.
func (s *GraphStore) findRelation(r models.Relation) int {
	for i, existing := range s.graph.Relations {
		if existing.From == r.From && existing.To == r.To && existing.RelationType == r.RelationType {
			return i
		}
	}
	return -1
}

func copyEntity(e models.Entity) models.Entity {
	e.Observations = append([]string(nil), e.Observations...)
	return e
}

func dedup(list []string) []string {
	if len(list) < 2 {
		return list
	}
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
