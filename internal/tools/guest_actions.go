package tools

import (
	"context"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rcourtman/proxmox-mcp/internal/actions"
)

type vmActionParams struct {
	Node   string `json:"node" jsonschema:"Name of the cluster node the VM lives on."`
	VMID   int    `json:"vmid" jsonschema:"Numeric id of the VM."`
	Action string `json:"action" jsonschema:"Power action: start, stop, shutdown, reboot, reset, suspend or resume."`
}

type containerActionParams struct {
	Node   string `json:"node" jsonschema:"Name of the cluster node the container lives on."`
	VMID   int    `json:"vmid" jsonschema:"Numeric id of the container."`
	Action string `json:"action" jsonschema:"Power action: start, stop, shutdown, reboot, suspend or resume. Suspend/resume depend on guest kernel support."`
}

type snapshotParams struct {
	Kind     string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node     string `json:"node" jsonschema:"Name of the cluster node the guest lives on."`
	VMID     int    `json:"vmid" jsonschema:"Numeric id of the guest."`
	Snapname string `json:"snapname" jsonschema:"Name of the snapshot."`
	VMState  bool   `json:"vmstate,omitempty" jsonschema:"Include RAM state when creating a VM snapshot."`
}

type cloneParams struct {
	Kind    string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node    string `json:"node" jsonschema:"Name of the cluster node the source guest lives on."`
	VMID    int    `json:"vmid" jsonschema:"Numeric id of the source guest."`
	NewVMID int    `json:"new_vmid" jsonschema:"Id for the new guest. Must be positive, unused, and different from the source id."`
	Name    string `json:"name,omitempty" jsonschema:"Name (VM) or hostname (container) for the clone."`
	Full    bool   `json:"full,omitempty" jsonschema:"Create a full copy of all disks instead of a linked clone. Linked container clones require a template source."`
	Target  string `json:"target,omitempty" jsonschema:"Target node for the clone."`
	Storage string `json:"storage,omitempty" jsonschema:"Target storage for a full clone."`
}

type migrateParams struct {
	Kind   string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node   string `json:"node" jsonschema:"Node the guest currently runs on."`
	VMID   int    `json:"vmid" jsonschema:"Numeric id of the guest."`
	Target string `json:"target" jsonschema:"Node to migrate the guest to."`
	Online bool   `json:"online,omitempty" jsonschema:"Migrate without stopping (VM live migration / container restart migration)."`
}

type templateParams struct {
	Kind string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node string `json:"node" jsonschema:"Name of the cluster node the guest lives on."`
	VMID int    `json:"vmid" jsonschema:"Numeric id of the guest."`
}

type deleteGuestParams struct {
	Kind  string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node  string `json:"node" jsonschema:"Name of the cluster node the guest lives on."`
	VMID  int    `json:"vmid" jsonschema:"Numeric id of the guest."`
	Purge bool   `json:"purge,omitempty" jsonschema:"Also remove the guest from backup jobs and HA resources."`
}

type createBackupParams struct {
	Kind    string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node    string `json:"node" jsonschema:"Name of the cluster node the guest lives on."`
	VMID    int    `json:"vmid" jsonschema:"Numeric id of the guest."`
	Storage string `json:"storage,omitempty" jsonschema:"Storage to write the backup to."`
	Mode    string `json:"mode,omitempty" jsonschema:"Backup mode: snapshot, suspend or stop."`
}

type restoreBackupParams struct {
	Kind    string `json:"kind" jsonschema:"Resource kind: vm or container."`
	Node    string `json:"node" jsonschema:"Node to restore on."`
	VMID    int    `json:"vmid" jsonschema:"Numeric id of the guest the backup was taken from."`
	NewVMID int    `json:"new_vmid" jsonschema:"Id to restore into. Must be positive and different from the source id."`
	Archive string `json:"archive" jsonschema:"Backup archive volume id, e.g. local:backup/vzdump-qemu-100-....vma.zst."`
	Storage string `json:"storage,omitempty" jsonschema:"Target storage for restored disks."`
	Force   bool   `json:"force,omitempty" jsonschema:"Overwrite an existing guest with the target id."`
}

type deleteBackupParams struct {
	Node    string `json:"node" jsonschema:"Node the storage is reachable from."`
	Storage string `json:"storage" jsonschema:"Storage holding the backup."`
	VolID   string `json:"volid" jsonschema:"Volume id of the backup to delete."`
}

func (r *Registry) registerActionTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "vm_action",
		Description: "Perform a power action on a virtual machine: start, stop, shutdown, reboot, reset, suspend or resume. Returns the UPID of the spawned task.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params vmActionParams) (*mcp.CallToolResult, any, error) {
		outcome := r.dispatcher.Invoke(ctx, actions.KindVM,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, params.Action, nil)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "container_action",
		Description: "Perform a power action on a container: start, stop, shutdown, reboot, suspend or resume. Returns the UPID of the spawned task.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params containerActionParams) (*mcp.CallToolResult, any, error) {
		outcome := r.dispatcher.Invoke(ctx, actions.KindContainer,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, params.Action, nil)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_snapshot",
		Description: "Create a snapshot of a virtual machine or container.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params snapshotParams) (*mcp.CallToolResult, any, error) {
		return r.invokeSnapshot(ctx, params, actions.ActionCreateSnapshot)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rollback_snapshot",
		Description: "Roll a guest back to a snapshot. DESTRUCTIVE: discards all state since the snapshot. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params snapshotParams) (*mcp.CallToolResult, any, error) {
		return r.invokeSnapshot(ctx, params, actions.ActionRollbackSnapshot)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_snapshot",
		Description: "Delete a snapshot of a guest. DESTRUCTIVE: irreversible. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params snapshotParams) (*mcp.CallToolResult, any, error) {
		return r.invokeSnapshot(ctx, params, actions.ActionDeleteSnapshot)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clone_guest",
		Description: "Clone a virtual machine or container into a new id. DESTRUCTIVE classification: allocates resources and may collide with existing ids. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params cloneParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		opts := map[string]string{"new_vmid": strconv.Itoa(params.NewVMID)}
		if params.Name != "" {
			if kind == actions.KindContainer {
				opts["hostname"] = params.Name
			} else {
				opts["name"] = params.Name
			}
		}
		if params.Full {
			opts["full"] = "1"
		}
		if params.Target != "" {
			opts["target"] = params.Target
		}
		if params.Storage != "" {
			opts["storage"] = params.Storage
		}
		outcome := r.dispatcher.Invoke(ctx, kind,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, actions.ActionClone, opts)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "migrate_guest",
		Description: "Migrate a guest to another node. Service-impacting. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params migrateParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		opts := map[string]string{"target": params.Target}
		if params.Online {
			if kind == actions.KindContainer {
				opts["restart"] = "1"
			} else {
				opts["online"] = "1"
			}
		}
		outcome := r.dispatcher.Invoke(ctx, kind,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, actions.ActionMigrate, opts)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "convert_to_template",
		Description: "Convert a guest into a template. DESTRUCTIVE: irreversible, the guest becomes a clone-only source. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params templateParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		outcome := r.dispatcher.Invoke(ctx, kind,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, actions.ActionConvertToTemplate, nil)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_guest",
		Description: "Delete a virtual machine or container. DESTRUCTIVE: irreversible, destroys disks. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params deleteGuestParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		opts := map[string]string{}
		if params.Purge {
			opts["purge"] = "1"
		}
		outcome := r.dispatcher.Invoke(ctx, kind,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, actions.ActionDelete, opts)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_backup",
		Description: "Create a vzdump backup of a guest.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params createBackupParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		opts := map[string]string{}
		if params.Storage != "" {
			opts["storage"] = params.Storage
		}
		if params.Mode != "" {
			opts["mode"] = params.Mode
		}
		outcome := r.dispatcher.Invoke(ctx, kind,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, actions.ActionCreateBackup, opts)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "restore_backup",
		Description: "Restore a guest from a backup archive into a new id. DESTRUCTIVE: may overwrite an existing guest when force is set. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params restoreBackupParams) (*mcp.CallToolResult, any, error) {
		kind, err := resourceKind(params.Kind)
		if err != nil {
			return errorResult("%v", err), nil, nil
		}
		opts := map[string]string{
			"new_vmid": strconv.Itoa(params.NewVMID),
			"archive":  params.Archive,
		}
		if params.Storage != "" {
			opts["storage"] = params.Storage
		}
		if params.Force {
			opts["force"] = "1"
		}
		outcome := r.dispatcher.Invoke(ctx, kind,
			actions.ResourceRef{Node: params.Node, VMID: params.VMID}, actions.ActionRestoreFromBackup, opts)
		return outcomeResult(outcome), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_backup",
		Description: "Delete a backup volume from a storage. DESTRUCTIVE: irreversible. Requires dangerous mode.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params deleteBackupParams) (*mcp.CallToolResult, any, error) {
		opts := map[string]string{
			"storage": params.Storage,
			"volid":   params.VolID,
		}
		// Backup volumes are not kind-scoped; the VM kind carries the request
		outcome := r.dispatcher.Invoke(ctx, actions.KindVM,
			actions.ResourceRef{Node: params.Node}, actions.ActionDeleteBackup, opts)
		return outcomeResult(outcome), nil, nil
	})
}

func (r *Registry) invokeSnapshot(ctx context.Context, params snapshotParams, action string) (*mcp.CallToolResult, any, error) {
	kind, err := resourceKind(params.Kind)
	if err != nil {
		return errorResult("%v", err), nil, nil
	}
	opts := map[string]string{"snapname": params.Snapname}
	if params.VMState && action == actions.ActionCreateSnapshot && kind == actions.KindVM {
		opts["vmstate"] = "1"
	}
	outcome := r.dispatcher.Invoke(ctx, kind,
		actions.ResourceRef{Node: params.Node, VMID: params.VMID}, action, opts)
	return outcomeResult(outcome), nil, nil
}
