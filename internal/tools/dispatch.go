package tools

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

var (
	// ErrMissingArguments is reported when an operation is invoked without
	// an argument object.
	ErrMissingArguments = errors.New("missing arguments")
	// ErrUnknownOperation is reported when no registered operation matches
	// the requested name.
	ErrUnknownOperation = errors.New("unknown operation")
)

type rawHandler func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error)

// Dispatcher maps operation names to handlers and normalizes every outcome
// into a tool result envelope. Registered handlers are shared between the
// MCP server (typed, via Register's return value) and direct name-based
// invocation (Dispatch). Errors never escape as panics or crashes; they
// come back as error-flagged results.
type Dispatcher struct {
	logger *zap.Logger
	ops    map[string]rawHandler
}

// NewDispatcher creates an empty dispatcher. A nil logger disables logging.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{logger: logger, ops: make(map[string]rawHandler)}
}

// Register wires a typed handler under an operation name and returns the
// handler wrapped with per-call logging, suitable for mcp.AddTool.
func Register[In any](d *Dispatcher, name string, h func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error)) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, any, error) {
	logged := func(ctx context.Context, req *mcp.CallToolRequest, input In) (*mcp.CallToolResult, any, error) {
		log := d.logger.With(zap.String("op", name), zap.String("call_id", uuid.NewString()))
		res, out, err := h(ctx, req, input)
		switch {
		case err != nil:
			log.Error("operation failed", zap.Error(err))
		case res != nil && res.IsError:
			log.Warn("operation rejected", zap.String("reason", resultText(res)))
		default:
			log.Debug("operation completed")
		}
		return res, out, err
	}

	d.ops[name] = func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
		var input In
		if err := json.Unmarshal(args, &input); err != nil {
			return nil, errors.Wrapf(err, "decode arguments for %s", name)
		}
		res, _, err := logged(ctx, nil, input)
		return res, err
	}

	return logged
}

// Dispatch invokes the named operation with a raw JSON argument object.
// Absent arguments fail before any handler runs; unknown names fail without
// touching the store. Every failure, including handler errors, is returned
// as an error-flagged result.
func (d *Dispatcher) Dispatch(ctx context.Context, op string, args json.RawMessage) *mcp.CallToolResult {
	if len(args) == 0 || string(args) == "null" {
		d.logger.Warn("dispatch without arguments", zap.String("op", op))
		return toolError("%v for operation %s", ErrMissingArguments, op)
	}

	h, ok := d.ops[op]
	if !ok {
		d.logger.Warn("dispatch of unknown operation", zap.String("op", op))
		return toolError("%v: %s", ErrUnknownOperation, op)
	}

	res, err := h(ctx, args)
	if err != nil {
		return toolError("Operation %s failed: %v", op, err)
	}
	return res
}

// Operations returns the registered operation names.
func (d *Dispatcher) Operations() []string {
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	return names
}

func resultText(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
