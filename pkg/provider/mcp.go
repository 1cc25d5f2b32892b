package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// JSON-RPC codes the SDK uses for its own connection shutdown
const (
	codeClientClosing = -32003
	codeServerClosing = -32004
	codeRejected      = -32005
)

// ClientName identifies this runtime to MCP servers
const ClientName = "cortex"

// Version is reported in the MCP handshake
var Version = "0.1.0"

// MCPConnector connects to a Model Context Protocol server
type MCPConnector struct {
	id        string
	transport func() (mcp.Transport, error)
}

// NewMCPCommand launches command as a stdio MCP server on Connect
func NewMCPCommand(id, command string, args []string, env map[string]string) *MCPConnector {
	return &MCPConnector{
		id: id,
		transport: func() (mcp.Transport, error) {
			if command == "" {
				return nil, fmt.Errorf("provider %s: no command configured", id)
			}
			cmd := exec.Command(command, args...)
			if len(env) > 0 {
				cmd.Env = os.Environ()
				for k, v := range env {
					cmd.Env = append(cmd.Env, k+"="+v)
				}
			}
			return &mcp.CommandTransport{Command: cmd}, nil
		},
	}
}

// NewMCPTransport connects over an existing transport, such as one half of
// mcp.NewInMemoryTransports
func NewMCPTransport(id string, t mcp.Transport) *MCPConnector {
	return &MCPConnector{
		id:        id,
		transport: func() (mcp.Transport, error) { return t, nil },
	}
}

// ID returns the connector id
func (c *MCPConnector) ID() string { return c.id }

// Connect performs the MCP handshake
func (c *MCPConnector) Connect(ctx context.Context) (Session, error) {
	t, err := c.transport()
	if err != nil {
		return nil, err
	}
	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: Version}, nil)
	cs, err := client.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("provider %s: handshake failed: %w", c.id, err)
	}
	return &mcpSession{id: c.id, cs: cs}, nil
}

type mcpSession struct {
	id string
	cs *mcp.ClientSession
}

func (s *mcpSession) Multiplexed() bool { return true }

func (s *mcpSession) ListTools(ctx context.Context) ([]ToolSpec, error) {
	var specs []ToolSpec
	params := &mcp.ListToolsParams{}
	for {
		res, err := s.cs.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("provider %s: list tools: %w", s.id, err)
		}
		for _, t := range res.Tools {
			spec := ToolSpec{Name: t.Name, Description: t.Description}
			if t.InputSchema != nil {
				raw, err := json.Marshal(t.InputSchema)
				if err != nil {
					return nil, fmt.Errorf("provider %s: tool %s schema: %w", s.id, t.Name, err)
				}
				spec.InputSchema = raw
			}
			specs = append(specs, spec)
		}
		if res.NextCursor == "" {
			return specs, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

func (s *mcpSession) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	res, err := s.cs.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		// a well-formed error response is the tool failing, not the transport
		if msg, ok := serverError(err); ok {
			return ToolError(msg), nil
		}
		return Result{}, fmt.Errorf("call %s: %w", name, err)
	}

	text := contentText(res)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return ToolError(text), nil
	}
	return Success(text), nil
}

func (s *mcpSession) Close() error {
	return s.cs.Close()
}

// serverError reports the message of a JSON-RPC error response sent by the
// server. Errors the SDK raises while the connection shuts down do not count.
func serverError(err error) (string, bool) {
	var wire *jsonrpc.Error
	if !errors.As(err, &wire) {
		return "", false
	}
	switch wire.Code {
	case codeClientClosing, codeServerClosing, codeRejected:
		return "", false
	}
	if wire.Message == "" {
		return "tool reported an error", true
	}
	return wire.Message, true
}

// contentText joins text content, falling back to structured content
func contentText(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if raw, err := json.Marshal(res.StructuredContent); err == nil {
			return string(raw)
		}
	}
	return strings.Join(parts, "\n")
}
