package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/storage"
)

// KnowledgeTools holds references needed by knowledge graph tool handlers.
type KnowledgeTools struct {
	Store *storage.GraphStore
}

// --- Input types ---

type CreateEntitiesInput struct {
	Entities []EntityInput `json:"entities" jsonschema:"Array of entities to create"`
}

type EntityInput struct {
	Name         string   `json:"name" jsonschema:"Entity name, the unique identifier"`
	EntityType   string   `json:"entityType" jsonschema:"Entity type (e.g., person, organization, event)"`
	Observations []string `json:"observations,omitempty" jsonschema:"Initial observations about the entity"`
}

type AddObservationsInput struct {
	Observations []ObservationInput `json:"observations" jsonschema:"Array of observation batches to add"`
}

type ObservationInput struct {
	EntityName string   `json:"entityName" jsonschema:"Name of the entity to add observations to"`
	Contents   []string `json:"contents" jsonschema:"Observation texts to add"`
}

type CreateRelationsInput struct {
	Relations []RelationInput `json:"relations" jsonschema:"Array of relations to create"`
}

type RelationInput struct {
	From         string `json:"from" jsonschema:"Source entity name"`
	To           string `json:"to" jsonschema:"Target entity name"`
	RelationType string `json:"relationType" jsonschema:"Relation type in active voice (e.g., works_at, depends_on)"`
}

type SearchNodesInput struct {
	Query string `json:"query" jsonschema:"Case-insensitive substring matched against entity names, types, and observations; empty matches everything"`
}

type OpenNodesInput struct {
	Names []string `json:"names" jsonschema:"Exact entity names to retrieve"`
}

type DeleteEntitiesInput struct {
	Names []string `json:"names" jsonschema:"Entity names to delete"`
}

type DeleteObservationsInput struct {
	Deletions []DeleteObservationItem `json:"deletions" jsonschema:"Array of observation batches to delete"`
}

type DeleteObservationItem struct {
	EntityName   string   `json:"entityName" jsonschema:"Name of the entity"`
	Observations []string `json:"observations" jsonschema:"Observation texts to match and delete"`
}

type DeleteRelationsInput struct {
	Relations []RelationInput `json:"relations" jsonschema:"Array of relations to delete"`
}

// --- Result types ---

type CreateEntitiesResult struct {
	Created []string `json:"created"`
}

type CreateRelationsResult struct {
	Created int `json:"created"`
}

type AddObservationsResult struct {
	Added map[string]int `json:"added"`
}

type DeleteEntitiesResult struct {
	Deleted int `json:"deleted"`
}

type DeleteObservationsResult struct {
	Deleted map[string]int `json:"deleted"`
}

type DeleteRelationsResult struct {
	Deleted int `json:"deleted"`
}

type NodesResult struct {
	Entities []models.Entity `json:"entities"`
}

// --- Handlers ---

func (t *KnowledgeTools) CreateEntities(_ context.Context, _ *mcp.CallToolRequest, input CreateEntitiesInput) (*mcp.CallToolResult, any, error) {
	entities := make([]models.Entity, len(input.Entities))
	for i, e := range input.Entities {
		entities[i] = models.Entity{
			Name:         e.Name,
			EntityType:   e.EntityType,
			Observations: e.Observations,
		}
	}

	created, err := t.Store.CreateEntities(entities)
	if err != nil {
		return toolError("Failed to create entities: %v", err), nil, nil
	}

	return toolJSON(CreateEntitiesResult{Created: created})
}

func (t *KnowledgeTools) CreateRelations(_ context.Context, _ *mcp.CallToolRequest, input CreateRelationsInput) (*mcp.CallToolResult, any, error) {
	created, err := t.Store.CreateRelations(toModelRelations(input.Relations))
	if err != nil {
		return toolError("Failed to create relations: %v", err), nil, nil
	}

	return toolJSON(CreateRelationsResult{Created: created})
}

func (t *KnowledgeTools) AddObservations(_ context.Context, _ *mcp.CallToolRequest, input AddObservationsInput) (*mcp.CallToolResult, any, error) {
	updates := make([]storage.ObservationUpdate, len(input.Observations))
	for i, o := range input.Observations {
		updates[i] = storage.ObservationUpdate{EntityName: o.EntityName, Contents: o.Contents}
	}

	added, err := t.Store.AddObservations(updates)
	if err != nil {
		return toolError("Failed to add observations: %v", err), nil, nil
	}

	return toolJSON(AddObservationsResult{Added: added})
}

func (t *KnowledgeTools) DeleteEntities(_ context.Context, _ *mcp.CallToolRequest, input DeleteEntitiesInput) (*mcp.CallToolResult, any, error) {
	deleted, err := t.Store.DeleteEntities(input.Names)
	if err != nil {
		return toolError("Failed to delete entities: %v", err), nil, nil
	}

	return toolJSON(DeleteEntitiesResult{Deleted: deleted})
}

func (t *KnowledgeTools) DeleteObservations(_ context.Context, _ *mcp.CallToolRequest, input DeleteObservationsInput) (*mcp.CallToolResult, any, error) {
	deletions := make([]storage.ObservationDeletion, len(input.Deletions))
	for i, d := range input.Deletions {
		deletions[i] = storage.ObservationDeletion{EntityName: d.EntityName, Observations: d.Observations}
	}

	deleted, err := t.Store.DeleteObservations(deletions)
	if err != nil {
		return toolError("Failed to delete observations: %v", err), nil, nil
	}

	return toolJSON(DeleteObservationsResult{Deleted: deleted})
}

func (t *KnowledgeTools) DeleteRelations(_ context.Context, _ *mcp.CallToolRequest, input DeleteRelationsInput) (*mcp.CallToolResult, any, error) {
	deleted, err := t.Store.DeleteRelations(toModelRelations(input.Relations))
	if err != nil {
		return toolError("Failed to delete relations: %v", err), nil, nil
	}

	return toolJSON(DeleteRelationsResult{Deleted: deleted})
}

func (t *KnowledgeTools) ReadGraph(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return toolJSON(t.Store.ReadGraph())
}

func (t *KnowledgeTools) SearchNodes(_ context.Context, _ *mcp.CallToolRequest, input SearchNodesInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(NodesResult{Entities: t.Store.SearchNodes(input.Query)})
}

func (t *KnowledgeTools) OpenNodes(_ context.Context, _ *mcp.CallToolRequest, input OpenNodesInput) (*mcp.CallToolResult, any, error) {
	return toolJSON(NodesResult{Entities: t.Store.OpenNodes(input.Names)})
}

func toModelRelations(inputs []RelationInput) []models.Relation {
	relations := make([]models.Relation, len(inputs))
	for i, r := range inputs {
		relations[i] = models.Relation{From: r.From, To: r.To, RelationType: r.RelationType}
	}
	return relations
}

// --- Helpers ---

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
