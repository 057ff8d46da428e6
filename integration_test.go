package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/server"
	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/storage"
)

// setupIntegration creates a real MCP server with in-memory transport and returns
// a connected client session plus the snapshot path backing the store.
func setupIntegration(t *testing.T) (*mcp.ClientSession, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "knowledge-graph.json")
	store := storage.Open(path, zap.NewNop())
	srv := server.New(store, zap.NewNop())

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return session, path
}

// callTool is a helper that calls a tool and returns the text content.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
	}
	return tc.Text
}

// callToolExpectError calls a tool and expects an error response (IsError=true).
func callToolExpectError(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): protocol error: %v", name, err)
	}
	if !result.IsError {
		tc := result.Content[0].(*mcp.TextContent)
		t.Fatalf("CallTool(%s): expected error but got success: %s", name, tc.Text)
	}
	tc := result.Content[0].(*mcp.TextContent)
	return tc.Text
}

func TestIntegration_ListTools(t *testing.T) {
	session, _ := setupIntegration(t)

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	expectedTools := []string{
		"create_entities", "add_observations", "create_relations",
		"search_nodes", "open_nodes", "read_graph",
		"delete_entities", "delete_observations", "delete_relations",
	}

	toolNames := make(map[string]bool)
	for _, tool := range result.Tools {
		toolNames[tool.Name] = true
	}

	for _, name := range expectedTools {
		if !toolNames[name] {
			t.Errorf("Missing tool: %s", name)
		}
	}

	if len(result.Tools) != len(expectedTools) {
		t.Errorf("Expected %d tools, got %d", len(expectedTools), len(result.Tools))
	}
}

func TestIntegration_FullWorkflow(t *testing.T) {
	session, path := setupIntegration(t)

	// Step 1: create two entities
	text := callTool(t, session, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{
				"name":         "John",
				"entityType":   "person",
				"observations": []any{"likes tea"},
			},
			map[string]any{
				"name":       "Acme",
				"entityType": "org",
			},
		},
	})
	var created struct {
		Created []string `json:"created"`
	}
	if err := json.Unmarshal([]byte(text), &created); err != nil {
		t.Fatalf("parse create_entities: %v", err)
	}
	if len(created.Created) != 2 {
		t.Fatalf("expected 2 created names, got %d", len(created.Created))
	}

	// Step 2: re-creating John is a silent skip
	text = callTool(t, session, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{"name": "John", "entityType": "robot"},
		},
	})
	if err := json.Unmarshal([]byte(text), &created); err != nil {
		t.Fatalf("parse create_entities: %v", err)
	}
	if len(created.Created) != 0 {
		t.Errorf("expected no created names, got %v", created.Created)
	}

	// Step 3: relate them
	text = callTool(t, session, "create_relations", map[string]any{
		"relations": []any{
			map[string]any{"from": "John", "to": "Acme", "relationType": "works_at"},
		},
	})
	if !strings.Contains(text, `"created": 1`) {
		t.Errorf("create_relations = %s, want created: 1", text)
	}

	// Step 4: add observations, one new and one duplicate
	text = callTool(t, session, "add_observations", map[string]any{
		"observations": []any{
			map[string]any{"entityName": "John", "contents": []any{"likes tea", "drinks coffee"}},
		},
	})
	var added struct {
		Added map[string]int `json:"added"`
	}
	if err := json.Unmarshal([]byte(text), &added); err != nil {
		t.Fatalf("parse add_observations: %v", err)
	}
	if added.Added["John"] != 1 {
		t.Errorf("added[John] = %d, want 1", added.Added["John"])
	}

	// Step 5: search is case-insensitive across fields
	text = callTool(t, session, "search_nodes", map[string]any{"query": "COFFEE"})
	if !strings.Contains(text, "John") {
		t.Errorf("search_nodes(COFFEE) = %s, want John", text)
	}

	// Step 6: delete Acme; the relation must cascade away
	text = callTool(t, session, "delete_entities", map[string]any{
		"names": []any{"Acme"},
	})
	if !strings.Contains(text, `"deleted": 1`) {
		t.Errorf("delete_entities = %s, want deleted: 1", text)
	}

	text = callTool(t, session, "read_graph", map[string]any{})
	var graph models.KnowledgeGraph
	if err := json.Unmarshal([]byte(text), &graph); err != nil {
		t.Fatalf("parse read_graph: %v", err)
	}
	if len(graph.Entities) != 1 || graph.Entities[0].Name != "John" {
		t.Errorf("graph.Entities = %+v, want only John", graph.Entities)
	}
	if len(graph.Relations) != 0 {
		t.Errorf("graph.Relations = %+v, want empty after cascade", graph.Relations)
	}

	// Step 7: the snapshot on disk reflects the final state
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var onDisk models.KnowledgeGraph
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if len(onDisk.Entities) != 1 || len(onDisk.Relations) != 0 {
		t.Errorf("snapshot = %+v, want one entity and no relations", onDisk)
	}
}

func TestIntegration_AddObservationsUnknownEntity(t *testing.T) {
	session, _ := setupIntegration(t)

	text := callToolExpectError(t, session, "add_observations", map[string]any{
		"observations": []any{
			map[string]any{"entityName": "ghost", "contents": []any{"boo"}},
		},
	})
	if !strings.Contains(text, "ghost") {
		t.Errorf("error = %s, want mention of ghost", text)
	}
}

func TestIntegration_DeleteIsLenient(t *testing.T) {
	session, _ := setupIntegration(t)

	// Deleting things that never existed is not an error anywhere.
	callTool(t, session, "delete_entities", map[string]any{"names": []any{"nobody"}})
	callTool(t, session, "delete_observations", map[string]any{
		"deletions": []any{
			map[string]any{"entityName": "nobody", "observations": []any{"x"}},
		},
	})
	callTool(t, session, "delete_relations", map[string]any{
		"relations": []any{
			map[string]any{"from": "a", "to": "b", "relationType": "c"},
		},
	})
}

func TestIntegration_OpenNodes(t *testing.T) {
	session, _ := setupIntegration(t)

	callTool(t, session, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{"name": "A", "entityType": "t"},
			map[string]any{"name": "B", "entityType": "t"},
		},
	})

	text := callTool(t, session, "open_nodes", map[string]any{
		"names": []any{"B", "missing"},
	})
	var result struct {
		Entities []models.Entity `json:"entities"`
	}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		t.Fatalf("parse open_nodes: %v", err)
	}
	if len(result.Entities) != 1 || result.Entities[0].Name != "B" {
		t.Errorf("open_nodes = %+v, want only B", result.Entities)
	}
}

func TestIntegration_Persistence(t *testing.T) {
	session, path := setupIntegration(t)

	callTool(t, session, "create_entities", map[string]any{
		"entities": []any{
			map[string]any{"name": "Durable", "entityType": "fact", "observations": []any{"survives restarts"}},
		},
	})
	session.Close()

	// A second server over the same file picks up where the first left off.
	store := storage.Open(path, zap.NewNop())
	g := store.ReadGraph()
	if len(g.Entities) != 1 || g.Entities[0].Name != "Durable" {
		t.Fatalf("reloaded graph = %+v, want Durable", g.Entities)
	}
}
