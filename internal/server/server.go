package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/storage"
	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/tools"
)

// New creates a fully configured MCP server with all tools registered.
func New(store *storage.GraphStore, logger *zap.Logger) *mcp.Server {
	kt := &tools.KnowledgeTools{Store: store}
	d := tools.NewDispatcher(logger)

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "graph-mcp",
		Version: "0.1.0",
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_entities",
		Description: "Create one or more entities in the knowledge graph; names that already exist are skipped",
	}, tools.Register(d, "create_entities", kt.CreateEntities))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_relations",
		Description: "Create directed relations between entity names; exact duplicates are skipped",
	}, tools.Register(d, "create_relations", kt.CreateRelations))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_observations",
		Description: "Add observations to existing entities; fails if any named entity does not exist",
	}, tools.Register(d, "add_observations", kt.AddObservations))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_entities",
		Description: "Delete entities by name and cascade-delete their relations; unknown names are ignored",
	}, tools.Register(d, "delete_entities", kt.DeleteEntities))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_observations",
		Description: "Delete specific observations from entities; unknown entities are ignored",
	}, tools.Register(d, "delete_observations", kt.DeleteObservations))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_relations",
		Description: "Delete relations matching the exact (from, to, relationType) triple",
	}, tools.Register(d, "delete_relations", kt.DeleteRelations))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "read_graph",
		Description: "Read the entire knowledge graph",
	}, tools.Register(d, "read_graph", kt.ReadGraph))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_nodes",
		Description: "Search entities by case-insensitive substring over names, types, and observations; an empty query returns everything",
	}, tools.Register(d, "search_nodes", kt.SearchNodes))

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "open_nodes",
		Description: "Retrieve specific entities by exact name match",
	}, tools.Register(d, "open_nodes", kt.OpenNodes))

	return srv
}
