package actions

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"

	"github.com/rcourtman/proxmox-mcp/internal/metrics"
	"github.com/rcourtman/proxmox-mcp/internal/safety"
	"github.com/rcourtman/proxmox-mcp/pkg/proxmox"
	"github.com/rs/zerolog/log"
)

// Remote is the operation surface the dispatcher needs from the Proxmox API
// client. *proxmox.Client satisfies it; tests substitute fakes.
type Remote interface {
	PerformLifecycleAction(ctx context.Context, guestType, node string, vmid int, action string) (string, error)
	PerformSnapshotOp(ctx context.Context, guestType, node string, vmid int, op, snapName string, options map[string]string) (string, error)
	PerformCloneOp(ctx context.Context, guestType, node string, vmid, newID int, options map[string]string) (string, error)
	PerformDestructiveOp(ctx context.Context, guestType, node string, vmid int, op string, options map[string]string) (string, error)
}

// Dispatcher validates and routes action requests. It holds no mutable state:
// the gate is immutable after construction and the action table is a constant,
// so concurrent invocations need no locking.
type Dispatcher struct {
	remote Remote
	gate   safety.Gate
}

// NewDispatcher constructs a dispatcher bound to a remote and a resolved gate.
func NewDispatcher(remote Remote, gate safety.Gate) *Dispatcher {
	return &Dispatcher{remote: remote, gate: gate}
}

// DangerousModeEnabled exposes the gate state for diagnostics.
func (d *Dispatcher) DangerousModeEnabled() bool {
	return d.gate.Enabled()
}

// Invoke validates an action against the table and the gate, delegates to the
// remote, and normalizes the reply. Every failure path yields a Failure
// outcome; nothing is retried and a blocked or locally rejected request never
// reaches the cluster.
func (d *Dispatcher) Invoke(ctx context.Context, kind ResourceKind, ref ResourceRef, action string, params map[string]string) Outcome {
	spec, ok := actionTable[kind][action]
	if !ok {
		return d.finish(kind, ref, action,
			Failed(ErrUnknownAction, "action %q is not valid for resource kind %q", action, kind))
	}

	if spec.classification == PermittedIfDangerousMode && !d.gate.Enabled() {
		metrics.RecordDangerousActionBlocked(string(kind), action)
		log.Warn().
			Str("kind", string(kind)).
			Str("resource", ref.String()).
			Str("action", action).
			Msg("Dangerous action refused: dangerous mode is disabled")
		return d.finish(kind, ref, action,
			Failed(ErrDangerousActionDisabled,
				"action %q on %s is destructive and dangerous mode is disabled; restart with --allow-dangerous or PROXMOX_ALLOW_DANGEROUS=true to permit it",
				action, ref))
	}

	// delete-backup targets a storage volume, not a guest, so no vmid is needed
	needsGuest := action != ActionDeleteBackup
	if ref.Node == "" || (needsGuest && ref.VMID <= 0) {
		return d.finish(kind, ref, action,
			Failed(ErrInvalidParameter, "resource reference %q is invalid: node must be set and vmid positive", ref))
	}

	outcome := d.dispatch(ctx, kind, ref, action, spec, params)
	return d.finish(kind, ref, action, outcome)
}

func (d *Dispatcher) dispatch(ctx context.Context, kind ResourceKind, ref ResourceRef, action string, spec actionSpec, params map[string]string) Outcome {
	guestType := kind.GuestType()

	switch spec.group {
	case groupLifecycle:
		upid, err := d.remote.PerformLifecycleAction(ctx, guestType, ref.Node, ref.VMID, action)
		return normalize(upid, err)

	case groupSnapshot:
		snapName := params["snapname"]
		if snapName == "" {
			return Failed(ErrInvalidParameter, "action %q requires a snapname parameter", action)
		}
		options := cloneParams(params, "snapname")
		upid, err := d.remote.PerformSnapshotOp(ctx, guestType, ref.Node, ref.VMID, spec.remoteOp, snapName, options)
		return normalize(upid, err)

	case groupClone:
		newID, outcome := targetVMID(ref, params)
		if !outcome.OK {
			return outcome
		}
		options := cloneParams(params, "new_vmid")
		upid, err := d.remote.PerformCloneOp(ctx, guestType, ref.Node, ref.VMID, newID, options)
		return normalize(upid, err)

	case groupDestructive:
		return d.dispatchDestructive(ctx, guestType, ref, action, spec, params)
	}

	// Unreachable while the table only names the groups above
	return Failed(ErrUnknownAction, "action %q has no dispatch route", action)
}

func (d *Dispatcher) dispatchDestructive(ctx context.Context, guestType string, ref ResourceRef, action string, spec actionSpec, params map[string]string) Outcome {
	vmid := ref.VMID
	options := cloneParams(params)

	switch action {
	case ActionMigrate:
		if params["target"] == "" {
			return Failed(ErrInvalidParameter, "migrate requires a target node parameter")
		}
	case ActionRestoreFromBackup:
		if params["archive"] == "" {
			return Failed(ErrInvalidParameter, "restore-from-backup requires an archive parameter")
		}
		newID, outcome := targetVMID(ref, params)
		if !outcome.OK {
			return outcome
		}
		// The restore target id replaces the source id in the remote call
		vmid = newID
		options = cloneParams(params, "new_vmid")
	case ActionDeleteBackup:
		if params["storage"] == "" || params["volid"] == "" {
			return Failed(ErrInvalidParameter, "delete-backup requires storage and volid parameters")
		}
	}

	upid, err := d.remote.PerformDestructiveOp(ctx, guestType, ref.Node, vmid, spec.remoteOp, options)
	return normalize(upid, err)
}

func (d *Dispatcher) finish(kind ResourceKind, ref ResourceRef, action string, outcome Outcome) Outcome {
	if outcome.OK {
		metrics.RecordActionInvoked(string(kind), action, "success")
		log.Info().
			Str("kind", string(kind)).
			Str("resource", ref.String()).
			Str("action", action).
			Str("task", outcome.Result).
			Msg("Action accepted by cluster")
	} else {
		metrics.RecordActionInvoked(string(kind), action, "failure")
		log.Debug().
			Str("kind", string(kind)).
			Str("resource", ref.String()).
			Str("action", action).
			Str("errorKind", string(outcome.Kind)).
			Str("error", outcome.Message).
			Msg("Action failed")
	}
	return outcome
}

// targetVMID validates the new_vmid parameter shared by clone and restore:
// a positive integer different from the source id. Rejecting these locally
// avoids a wasted round trip on an obviously malformed request.
func targetVMID(ref ResourceRef, params map[string]string) (int, Outcome) {
	raw, ok := params["new_vmid"]
	if !ok || raw == "" {
		return 0, Failed(ErrInvalidParameter, "a new_vmid parameter is required")
	}
	newID, err := strconv.Atoi(raw)
	if err != nil || newID <= 0 {
		return 0, Failed(ErrInvalidParameter, "new_vmid %q must be a positive integer", raw)
	}
	if newID == ref.VMID {
		return 0, Failed(ErrInvalidParameter, "new_vmid %d must differ from the source vmid", newID)
	}
	return newID, Succeeded("")
}

// cloneParams copies params, dropping the named keys that were consumed by
// the dispatcher itself.
func cloneParams(params map[string]string, consumed ...string) map[string]string {
	options := make(map[string]string, len(params))
	for k, v := range params {
		options[k] = v
	}
	for _, key := range consumed {
		delete(options, key)
	}
	return options
}

// normalize folds the remote reply into an Outcome, classifying errors while
// preserving the cluster's message verbatim.
func normalize(result string, err error) Outcome {
	if err == nil {
		return Succeeded(result)
	}
	return Failed(classifyRemoteError(err), "%s", err.Error())
}

func classifyRemoteError(err error) ErrorKind {
	var apiErr *proxmox.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return ErrRemoteAuthFailure
		case 404:
			return ErrRemoteNotFound
		case 409:
			return ErrRemoteConflict
		case 595:
			// PVE proxy could not reach the node
			return ErrRemoteTransportError
		default:
			return ErrRemoteUnspecified
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrRemoteTransportError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrRemoteTransportError
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrRemoteTransportError
	}

	return ErrRemoteUnspecified
}
