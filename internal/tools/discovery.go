package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type emptyParams struct{}

type clusterResourcesParams struct {
	Type string `json:"type,omitempty" jsonschema:"Optional resource type filter: vm, storage, node or sdn."`
}

type nodeParams struct {
	Node string `json:"node" jsonschema:"Name of the cluster node."`
}

type storageContentParams struct {
	Node    string `json:"node" jsonschema:"Name of the cluster node."`
	Storage string `json:"storage" jsonschema:"Storage identifier."`
	Content string `json:"content,omitempty" jsonschema:"Optional content filter, e.g. backup, iso, vztmpl."`
}

type guestParams struct {
	Node string `json:"node" jsonschema:"Name of the cluster node the guest lives on."`
	VMID int    `json:"vmid" jsonschema:"Numeric id of the guest."`
}

type snapshotListParams struct {
	Kind string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node string `json:"node" jsonschema:"Name of the cluster node the guest lives on."`
	VMID int    `json:"vmid" jsonschema:"Numeric id of the guest."`
}

type taskStatusParams struct {
	Node string `json:"node" jsonschema:"Node the task runs on."`
	UPID string `json:"upid" jsonschema:"Task identifier returned by a mutating operation."`
}

func (r *Registry) registerDiscoveryTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_version",
		Description: "Get the Proxmox VE version of the connected cluster.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyParams) (*mcp.CallToolResult, any, error) {
		version, err := r.query.GetVersion(ctx)
		if err != nil {
			return errorResult("retrieving version from Proxmox: %v", err), nil, nil
		}
		return textResult(fmt.Sprintf("Proxmox VE %s (release %s)", version.Version, version.Release)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_nodes",
		Description: "List all nodes in the Proxmox cluster with status, CPU, memory and disk usage.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetNodes(ctx)
		}, "retrieving nodes from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cluster_resources",
		Description: "List cluster resources (guests, storage, nodes), optionally filtered by type.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params clusterResourcesParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetClusterResources(ctx, params.Type)
		}, "retrieving cluster resources from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_vms",
		Description: "List QEMU virtual machines on a node.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params nodeParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetGuests(ctx, "qemu", params.Node)
		}, "retrieving VMs from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_containers",
		Description: "List LXC containers on a node.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params nodeParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetGuests(ctx, "lxc", params.Node)
		}, "retrieving containers from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_storage",
		Description: "List storage available on a node.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params nodeParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetStorage(ctx, params.Node)
		}, "retrieving storage from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_storage_content",
		Description: "List the content of a storage (backups, ISO images, templates).",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params storageContentParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetStorageContent(ctx, params.Node, params.Storage, params.Content)
		}, "retrieving storage content from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_vm_status",
		Description: "Get the current status of a virtual machine.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params guestParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetGuestStatus(ctx, "qemu", params.Node, params.VMID)
		}, "retrieving VM status from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_container_status",
		Description: "Get the current status of a container.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params guestParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetGuestStatus(ctx, "lxc", params.Node, params.VMID)
		}, "retrieving container status from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_vm_config",
		Description: "Get the configuration of a virtual machine.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params guestParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetGuestConfig(ctx, "qemu", params.Node, params.VMID)
		}, "retrieving VM config from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_container_config",
		Description: "Get the configuration of a container.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params guestParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetGuestConfig(ctx, "lxc", params.Node, params.VMID)
		}, "retrieving container config from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_snapshots",
		Description: "List snapshots of a virtual machine or container.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params snapshotListParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.ListSnapshots(ctx, kind.GuestType(), params.Node, params.VMID)
		}, "retrieving snapshots from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_task_status",
		Description: "Get the status of a task by its UPID. Mutating tools return a UPID when the cluster accepts the request; completion must be polled here.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params taskStatusParams) (*mcp.CallToolResult, any, error) {
		return r.passthrough(func() (json.RawMessage, error) {
			return r.query.GetTaskStatus(ctx, params.Node, params.UPID)
		}, "retrieving task status from Proxmox")
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "is_dangerous_mode_enabled",
		Description: "Report whether destructive operations (delete, rollback, clone, migrate, restore) are currently permitted.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, _ emptyParams) (*mcp.CallToolResult, any, error) {
		if r.dispatcher.DangerousModeEnabled() {
			return textResult("Dangerous mode is ENABLED: destructive operations are permitted."), nil, nil
		}
		return textResult("Dangerous mode is disabled: destructive operations will be refused."), nil, nil
	})
}

// passthrough fetches a raw payload and renders it, folding errors into tool
// output so the calling agent sees the reason instead of a protocol failure.
func (r *Registry) passthrough(fetch func() (json.RawMessage, error), activity string) (*mcp.CallToolResult, any, error) {
	raw, err := fetch()
	if err != nil {
		return errorResult("%s: %v", activity, err), nil, nil
	}
	result, err := jsonResult(raw)
	if err != nil {
		return errorResult("%s: %v", activity, err), nil, nil
	}
	return result, nil, nil
}
