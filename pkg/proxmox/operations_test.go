package proxmox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// opServer records the last mutating request and answers with a canned UPID.
func opServer(t *testing.T) (*httptest.Server, *struct {
	method string
	path   string
	form   map[string]string
}) {
	t.Helper()
	last := &struct {
		method string
		path   string
		form   map[string]string
	}{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.method = r.Method
		last.path = r.URL.Path
		last.form = map[string]string{}
		if err := r.ParseForm(); err == nil {
			for k, v := range r.PostForm {
				if len(v) > 0 {
					last.form[k] = v[0]
				}
			}
			// DELETE parameters arrive in the query string
			for k, v := range r.Form {
				if len(v) > 0 {
					last.form[k] = v[0]
				}
			}
		}
		fmt.Fprint(w, `{"data":"UPID:node1:000A:test:"}`)
	}))
	t.Cleanup(server.Close)
	return server, last
}

func opClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		Host:       server.URL,
		TokenName:  "user@pve!token",
		TokenValue: "secret",
		VerifySSL:  false,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestPerformLifecycleAction(t *testing.T) {
	server, last := opServer(t)
	client := opClient(t, server)

	upid, err := client.PerformLifecycleAction(context.Background(), GuestQemu, "node1", 100, "start")
	if err != nil {
		t.Fatalf("PerformLifecycleAction failed: %v", err)
	}
	if upid != "UPID:node1:000A:test:" {
		t.Fatalf("unexpected upid %q", upid)
	}
	if last.method != "POST" || last.path != "/api2/json/nodes/node1/qemu/100/status/start" {
		t.Fatalf("unexpected request %s %s", last.method, last.path)
	}

	if _, err := client.PerformLifecycleAction(context.Background(), GuestLXC, "node1", 200, "shutdown"); err != nil {
		t.Fatalf("PerformLifecycleAction failed: %v", err)
	}
	if last.path != "/api2/json/nodes/node1/lxc/200/status/shutdown" {
		t.Fatalf("unexpected path %s", last.path)
	}
}

func TestPerformSnapshotOp(t *testing.T) {
	server, last := opServer(t)
	client := opClient(t, server)
	ctx := context.Background()

	if _, err := client.PerformSnapshotOp(ctx, GuestQemu, "node1", 100, SnapshotCreate, "nightly", map[string]string{"vmstate": "1"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if last.method != "POST" || last.path != "/api2/json/nodes/node1/qemu/100/snapshot" {
		t.Fatalf("unexpected request %s %s", last.method, last.path)
	}
	if last.form["snapname"] != "nightly" || last.form["vmstate"] != "1" {
		t.Fatalf("unexpected form %v", last.form)
	}

	if _, err := client.PerformSnapshotOp(ctx, GuestLXC, "node1", 200, SnapshotRollback, "nightly", nil); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if last.method != "POST" || last.path != "/api2/json/nodes/node1/lxc/200/snapshot/nightly/rollback" {
		t.Fatalf("unexpected request %s %s", last.method, last.path)
	}

	if _, err := client.PerformSnapshotOp(ctx, GuestQemu, "node1", 100, SnapshotDelete, "nightly", nil); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if last.method != "DELETE" || last.path != "/api2/json/nodes/node1/qemu/100/snapshot/nightly" {
		t.Fatalf("unexpected request %s %s", last.method, last.path)
	}

	if _, err := client.PerformSnapshotOp(ctx, GuestQemu, "node1", 100, "defrag", "nightly", nil); err == nil {
		t.Fatal("expected error for unsupported snapshot op")
	}
}

func TestPerformCloneOp(t *testing.T) {
	server, last := opServer(t)
	client := opClient(t, server)

	_, err := client.PerformCloneOp(context.Background(), GuestQemu, "node1", 100, 105, map[string]string{
		"name": "clone-of-100",
		"full": "1",
	})
	if err != nil {
		t.Fatalf("PerformCloneOp failed: %v", err)
	}
	if last.method != "POST" || last.path != "/api2/json/nodes/node1/qemu/100/clone" {
		t.Fatalf("unexpected request %s %s", last.method, last.path)
	}
	if last.form["newid"] != "105" || last.form["name"] != "clone-of-100" || last.form["full"] != "1" {
		t.Fatalf("unexpected form %v", last.form)
	}
}

func TestPerformDestructiveOp(t *testing.T) {
	server, last := opServer(t)
	client := opClient(t, server)
	ctx := context.Background()

	tests := []struct {
		op         string
		options    map[string]string
		wantMethod string
		wantPath   string
		wantForm   map[string]string
	}{
		{
			op:         DestructiveDelete,
			options:    map[string]string{"purge": "1"},
			wantMethod: "DELETE",
			wantPath:   "/api2/json/nodes/node1/qemu/100",
			wantForm:   map[string]string{"purge": "1"},
		},
		{
			op:         DestructiveTemplate,
			wantMethod: "POST",
			wantPath:   "/api2/json/nodes/node1/qemu/100/template",
		},
		{
			op:         DestructiveMigrate,
			options:    map[string]string{"target": "node2", "online": "1"},
			wantMethod: "POST",
			wantPath:   "/api2/json/nodes/node1/qemu/100/migrate",
			wantForm:   map[string]string{"target": "node2", "online": "1"},
		},
		{
			op:         DestructiveBackup,
			options:    map[string]string{"storage": "local", "mode": "snapshot"},
			wantMethod: "POST",
			wantPath:   "/api2/json/nodes/node1/vzdump",
			wantForm:   map[string]string{"vmid": "100", "storage": "local", "mode": "snapshot"},
		},
		{
			op:         DestructiveRestore,
			options:    map[string]string{"archive": "local:backup/x.vma.zst", "force": "1"},
			wantMethod: "POST",
			wantPath:   "/api2/json/nodes/node1/qemu",
			wantForm:   map[string]string{"vmid": "100", "archive": "local:backup/x.vma.zst", "force": "1"},
		},
		{
			op:         DestructiveDeleteBackup,
			options:    map[string]string{"storage": "local", "volid": "local:backup/x.vma.zst"},
			wantMethod: "DELETE",
			// the server decodes %2F back into a slash when parsing the path
			wantPath: "/api2/json/nodes/node1/storage/local/content/local:backup/x.vma.zst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			upid, err := client.PerformDestructiveOp(ctx, GuestQemu, "node1", 100, tt.op, tt.options)
			if err != nil {
				t.Fatalf("PerformDestructiveOp(%s) failed: %v", tt.op, err)
			}
			if upid == "" {
				t.Fatal("expected a UPID")
			}
			if last.method != tt.wantMethod || last.path != tt.wantPath {
				t.Fatalf("unexpected request %s %s", last.method, last.path)
			}
			for k, v := range tt.wantForm {
				if last.form[k] != v {
					t.Fatalf("expected form %s=%s, got %v", k, v, last.form)
				}
			}
		})
	}

	if _, err := client.PerformDestructiveOp(ctx, GuestQemu, "node1", 100, DestructiveDeleteBackup, nil); err == nil {
		t.Fatal("expected error when storage/volid missing")
	}
	if _, err := client.PerformDestructiveOp(ctx, GuestQemu, "node1", 100, "implode", nil); err == nil {
		t.Fatal("expected error for unsupported op")
	}
}

func TestDiscoveryEndpoints(t *testing.T) {
	var lastPath, lastQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastPath = r.URL.Path
		lastQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api2/json/version":
			fmt.Fprint(w, `{"data":{"version":"8.2.4","release":"8.2","repoid":"abc123"}}`)
		default:
			fmt.Fprint(w, `{"data":[{"node":"node1","status":"online"}]}`)
		}
	}))
	defer server.Close()

	client := opClient(t, server)
	ctx := context.Background()

	version, err := client.GetVersion(ctx)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if version.Version != "8.2.4" || version.Release != "8.2" {
		t.Fatalf("unexpected version %+v", version)
	}

	if _, err := client.GetNodes(ctx); err != nil {
		t.Fatalf("GetNodes failed: %v", err)
	}
	if lastPath != "/api2/json/nodes" {
		t.Fatalf("unexpected path %s", lastPath)
	}

	if _, err := client.GetClusterResources(ctx, "vm"); err != nil {
		t.Fatalf("GetClusterResources failed: %v", err)
	}
	if lastPath != "/api2/json/cluster/resources" || lastQuery != "type=vm" {
		t.Fatalf("unexpected request %s?%s", lastPath, lastQuery)
	}

	if _, err := client.GetGuests(ctx, GuestLXC, "node1"); err != nil {
		t.Fatalf("GetGuests failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/lxc" {
		t.Fatalf("unexpected path %s", lastPath)
	}

	if _, err := client.GetGuestStatus(ctx, GuestQemu, "node1", 100); err != nil {
		t.Fatalf("GetGuestStatus failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/qemu/100/status/current" {
		t.Fatalf("unexpected path %s", lastPath)
	}

	if _, err := client.GetGuestConfig(ctx, GuestQemu, "node1", 100); err != nil {
		t.Fatalf("GetGuestConfig failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/qemu/100/config" {
		t.Fatalf("unexpected path %s", lastPath)
	}

	if _, err := client.ListSnapshots(ctx, GuestQemu, "node1", 100); err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/qemu/100/snapshot" {
		t.Fatalf("unexpected path %s", lastPath)
	}

	if _, err := client.GetStorage(ctx, "node1"); err != nil {
		t.Fatalf("GetStorage failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/storage" {
		t.Fatalf("unexpected path %s", lastPath)
	}

	if _, err := client.GetStorageContent(ctx, "node1", "local", "backup"); err != nil {
		t.Fatalf("GetStorageContent failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/storage/local/content" || lastQuery != "content=backup" {
		t.Fatalf("unexpected request %s?%s", lastPath, lastQuery)
	}

	if _, err := client.GetTaskStatus(ctx, "node1", "UPID:node1:000A:test:"); err != nil {
		t.Fatalf("GetTaskStatus failed: %v", err)
	}
	if lastPath != "/api2/json/nodes/node1/tasks/UPID:node1:000A:test:/status" {
		t.Fatalf("unexpected path %s", lastPath)
	}
}
