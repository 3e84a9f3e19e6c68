// Package tools registers the MCP tools exposed by the server and adapts
// them onto the action dispatcher and the Proxmox client. Read-only tools
// pass the cluster's JSON through pretty-printed; mutating tools are routed
// through the dispatcher so the action table and the dangerous-action gate
// apply uniformly.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rcourtman/proxmox-mcp/internal/actions"
	"github.com/rcourtman/proxmox-mcp/pkg/proxmox"
)

// Query is the read-only surface the tools need from the Proxmox client.
type Query interface {
	GetVersion(ctx context.Context) (*proxmox.Version, error)
	GetNodes(ctx context.Context) (json.RawMessage, error)
	GetClusterResources(ctx context.Context, resourceType string) (json.RawMessage, error)
	GetGuests(ctx context.Context, guestType, node string) (json.RawMessage, error)
	GetStorage(ctx context.Context, node string) (json.RawMessage, error)
	GetStorageContent(ctx context.Context, node, storage, content string) (json.RawMessage, error)
	GetGuestStatus(ctx context.Context, guestType, node string, vmid int) (json.RawMessage, error)
	GetGuestConfig(ctx context.Context, guestType, node string, vmid int) (json.RawMessage, error)
	ListSnapshots(ctx context.Context, guestType, node string, vmid int) (json.RawMessage, error)
	GetTaskStatus(ctx context.Context, node, upid string) (json.RawMessage, error)
}

// Registry wires tool handlers to their collaborators.
type Registry struct {
	query      Query
	dispatcher *actions.Dispatcher
}

// NewRegistry creates a registry over a query client and a dispatcher.
func NewRegistry(query Query, dispatcher *actions.Dispatcher) *Registry {
	return &Registry{query: query, dispatcher: dispatcher}
}

// Register adds every tool to the MCP server.
func (r *Registry) Register(server *mcp.Server) {
	r.registerDiscoveryTools(server)
	r.registerActionTools(server)
}

// textResult wraps plain text in a tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// jsonResult pretty-prints a raw API payload, matching what an operator would
// see from pvesh.
func jsonResult(raw json.RawMessage) (*mcp.CallToolResult, error) {
	pretty, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format response: %w", err)
	}
	return textResult(string(pretty)), nil
}

// errorResult reports a failure as tool output rather than a protocol error,
// so the calling agent can read and relay the reason.
func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: "+format, args...)}},
		IsError: true,
	}
}

// outcomeResult translates a dispatcher outcome into a tool result.
func outcomeResult(outcome actions.Outcome) *mcp.CallToolResult {
	if !outcome.OK {
		return errorResult("%s: %s", outcome.Kind, outcome.Message)
	}
	if outcome.Result == "" {
		return textResult("OK")
	}
	return textResult(outcome.Result)
}

// resourceKind maps the tool-facing kind string onto the dispatcher's enum.
func resourceKind(kind string) (actions.ResourceKind, error) {
	switch kind {
	case "vm":
		return actions.KindVM, nil
	case "container":
		return actions.KindContainer, nil
	default:
		return "", fmt.Errorf("unknown resource kind %q (expected vm or container)", kind)
	}
}
