package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Guest type path segments used by the PVE API.
const (
	GuestQemu = "qemu"
	GuestLXC  = "lxc"
)

// Snapshot operations accepted by PerformSnapshotOp.
const (
	SnapshotCreate   = "create"
	SnapshotRollback = "rollback"
	SnapshotDelete   = "delete"
)

// Destructive operations accepted by PerformDestructiveOp.
const (
	DestructiveDelete       = "delete"
	DestructiveTemplate     = "template"
	DestructiveMigrate      = "migrate"
	DestructiveBackup       = "backup"
	DestructiveRestore      = "restore"
	DestructiveDeleteBackup = "delete-backup"
)

// Version holds the cluster version reported by /version.
type Version struct {
	Version string `json:"version"`
	Release string `json:"release"`
	RepoID  string `json:"repoid"`
}

// GetVersion retrieves the PVE version. Used as the startup connection check.
func (c *Client) GetVersion(ctx context.Context) (*Version, error) {
	data, err := c.getData(ctx, "/version")
	if err != nil {
		return nil, err
	}
	var v Version
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse version response: %w", err)
	}
	return &v, nil
}

// GetNodes lists cluster nodes. The payload is passed through untouched so the
// tool layer can render exactly what the cluster reported.
func (c *Client) GetNodes(ctx context.Context) (json.RawMessage, error) {
	return c.getData(ctx, "/nodes")
}

// GetClusterResources lists all cluster resources, optionally filtered by type
// (vm, storage, node, sdn).
func (c *Client) GetClusterResources(ctx context.Context, resourceType string) (json.RawMessage, error) {
	path := "/cluster/resources"
	if resourceType != "" {
		path += "?type=" + url.QueryEscape(resourceType)
	}
	return c.getData(ctx, path)
}

// GetGuests lists QEMU VMs or LXC containers on a node.
func (c *Client) GetGuests(ctx context.Context, guestType, node string) (json.RawMessage, error) {
	return c.getData(ctx, fmt.Sprintf("/nodes/%s/%s", url.PathEscape(node), guestType))
}

// GetStorage lists storage on a node.
func (c *Client) GetStorage(ctx context.Context, node string) (json.RawMessage, error) {
	return c.getData(ctx, fmt.Sprintf("/nodes/%s/storage", url.PathEscape(node)))
}

// GetStorageContent lists the content of a storage (backups, ISOs, templates).
func (c *Client) GetStorageContent(ctx context.Context, node, storage, content string) (json.RawMessage, error) {
	path := fmt.Sprintf("/nodes/%s/storage/%s/content", url.PathEscape(node), url.PathEscape(storage))
	if content != "" {
		path += "?content=" + url.QueryEscape(content)
	}
	return c.getData(ctx, path)
}

// GetGuestStatus retrieves the current status of a VM or container.
func (c *Client) GetGuestStatus(ctx context.Context, guestType, node string, vmid int) (json.RawMessage, error) {
	return c.getData(ctx, fmt.Sprintf("/nodes/%s/%s/%d/status/current", url.PathEscape(node), guestType, vmid))
}

// GetGuestConfig retrieves the configuration of a VM or container.
func (c *Client) GetGuestConfig(ctx context.Context, guestType, node string, vmid int) (json.RawMessage, error) {
	return c.getData(ctx, fmt.Sprintf("/nodes/%s/%s/%d/config", url.PathEscape(node), guestType, vmid))
}

// ListSnapshots lists snapshots of a VM or container.
func (c *Client) ListSnapshots(ctx context.Context, guestType, node string, vmid int) (json.RawMessage, error) {
	return c.getData(ctx, fmt.Sprintf("/nodes/%s/%s/%d/snapshot", url.PathEscape(node), guestType, vmid))
}

// GetTaskStatus retrieves the status of a task by its UPID.
func (c *Client) GetTaskStatus(ctx context.Context, node, upid string) (json.RawMessage, error) {
	return c.getData(ctx, fmt.Sprintf("/nodes/%s/tasks/%s/status", url.PathEscape(node), url.PathEscape(upid)))
}

// PerformLifecycleAction posts a power-state change (start, stop, shutdown,
// reboot, reset, suspend, resume) and returns the UPID of the spawned task.
func (c *Client) PerformLifecycleAction(ctx context.Context, guestType, node string, vmid int, action string) (string, error) {
	path := fmt.Sprintf("/nodes/%s/%s/%d/status/%s", url.PathEscape(node), guestType, vmid, action)
	return c.taskData(ctx, "POST", path, url.Values{})
}

// PerformSnapshotOp creates, rolls back, or deletes a snapshot.
func (c *Client) PerformSnapshotOp(ctx context.Context, guestType, node string, vmid int, op, snapName string, options map[string]string) (string, error) {
	base := fmt.Sprintf("/nodes/%s/%s/%d/snapshot", url.PathEscape(node), guestType, vmid)
	data := toValues(options)

	switch op {
	case SnapshotCreate:
		data.Set("snapname", snapName)
		return c.taskData(ctx, "POST", base, data)
	case SnapshotRollback:
		return c.taskData(ctx, "POST", base+"/"+url.PathEscape(snapName)+"/rollback", data)
	case SnapshotDelete:
		return c.taskData(ctx, "DELETE", base+"/"+url.PathEscape(snapName), data)
	default:
		return "", fmt.Errorf("unsupported snapshot operation %q", op)
	}
}

// PerformCloneOp clones a VM or container into a new vmid.
func (c *Client) PerformCloneOp(ctx context.Context, guestType, node string, vmid, newID int, options map[string]string) (string, error) {
	data := toValues(options)
	data.Set("newid", strconv.Itoa(newID))
	path := fmt.Sprintf("/nodes/%s/%s/%d/clone", url.PathEscape(node), guestType, vmid)
	return c.taskData(ctx, "POST", path, data)
}

// PerformDestructiveOp routes the irreversible operations: guest deletion,
// template conversion, migration, backup creation/restore/deletion.
func (c *Client) PerformDestructiveOp(ctx context.Context, guestType, node string, vmid int, op string, options map[string]string) (string, error) {
	data := toValues(options)

	switch op {
	case DestructiveDelete:
		path := fmt.Sprintf("/nodes/%s/%s/%d", url.PathEscape(node), guestType, vmid)
		return c.taskData(ctx, "DELETE", path, data)
	case DestructiveTemplate:
		path := fmt.Sprintf("/nodes/%s/%s/%d/template", url.PathEscape(node), guestType, vmid)
		return c.taskData(ctx, "POST", path, data)
	case DestructiveMigrate:
		path := fmt.Sprintf("/nodes/%s/%s/%d/migrate", url.PathEscape(node), guestType, vmid)
		return c.taskData(ctx, "POST", path, data)
	case DestructiveBackup:
		data.Set("vmid", strconv.Itoa(vmid))
		path := fmt.Sprintf("/nodes/%s/vzdump", url.PathEscape(node))
		return c.taskData(ctx, "POST", path, data)
	case DestructiveRestore:
		// Restoring creates (or overwrites) the guest at vmid from an archive
		data.Set("vmid", strconv.Itoa(vmid))
		path := fmt.Sprintf("/nodes/%s/%s", url.PathEscape(node), guestType)
		return c.taskData(ctx, "POST", path, data)
	case DestructiveDeleteBackup:
		storage := data.Get("storage")
		volid := data.Get("volid")
		if storage == "" || volid == "" {
			return "", fmt.Errorf("delete-backup requires storage and volid options")
		}
		data.Del("storage")
		data.Del("volid")
		path := fmt.Sprintf("/nodes/%s/storage/%s/content/%s",
			url.PathEscape(node), url.PathEscape(storage), url.PathEscape(volid))
		return c.taskData(ctx, "DELETE", path, data)
	default:
		return "", fmt.Errorf("unsupported destructive operation %q", op)
	}
}

func toValues(options map[string]string) url.Values {
	data := url.Values{}
	for k, v := range options {
		data.Set(k, v)
	}
	return data
}
