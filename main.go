package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/server"
	"github.com/wagnerlima/memory-cloud/graph-mcp/internal/storage"
)

func main() {
	_ = godotenv.Load()

	transport := flag.String("transport", "stdio", "Transport mode: stdio or http")
	port := flag.String("port", "8081", "HTTP port (only used with --transport http)")
	memoryFile := flag.String("memory-file", "", "Path to the knowledge graph snapshot (defaults to $MEMORY_FILE_PATH, then ~/.graph-mcp/knowledge-graph.json)")
	flag.Parse()

	logger, err := newLogger(*transport)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	path, err := resolveSnapshotPath(*memoryFile)
	if err != nil {
		logger.Fatal("resolve snapshot path", zap.Error(err))
	}

	store := storage.Open(path, logger)
	srv := server.New(store, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch *transport {
	case "stdio":
		logger.Info("knowledge graph MCP server starting (stdio)", zap.String("snapshot", path))
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case "http":
		addr := ":" + *port
		handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
			return srv
		}, nil)
		logger.Info("knowledge graph MCP server listening", zap.String("addr", addr), zap.String("snapshot", path))
		if err := http.ListenAndServe(addr, handler); err != nil {
			logger.Fatal("http server error", zap.Error(err))
		}
	default:
		logger.Fatal("unknown transport (use stdio or http)", zap.String("transport", *transport))
	}
}

// newLogger builds the process logger. On stdio the protocol owns stdout,
// so logs go to stderr in console form; on http they are JSON on stdout.
func newLogger(transport string) (*zap.Logger, error) {
	if transport == "http" {
		return zap.NewProduction()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// resolveSnapshotPath picks the backing file: flag, then environment, then
// the per-user default.
func resolveSnapshotPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv("MEMORY_FILE_PATH"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".graph-mcp", "knowledge-graph.json"), nil
}
