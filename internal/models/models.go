package models

// Entity is a named node in the knowledge graph. The name is the primary
// key: case-sensitive and globally unique across the graph.
type Entity struct {
	Name         string   `json:"name"`
	EntityType   string   `json:"entityType"`
	Observations []string `json:"observations"`
}

// Relation is a directed, typed edge between two entity names. A relation
// has no id of its own; its identity is the full (from, to, relationType)
// triple. The endpoints are names, not references: a relation may point at
// entities that do not (or no longer) exist.
type Relation struct {
	From         string `json:"from"`
	To           string `json:"to"`
	RelationType string `json:"relationType"`
}

// KnowledgeGraph is the aggregate root: every entity and relation, in the
// shape persisted to disk.
type KnowledgeGraph struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}
