// Package actions validates and routes lifecycle actions against Proxmox
// guests. It owns the per-resource-kind action table, the dangerous-action
// classification, and the normalization of remote results into a single
// Outcome shape. It deliberately tracks no guest state: the cluster is
// authoritative, this layer only decides which requests may be sent.
package actions

import (
	"fmt"

	"github.com/rcourtman/proxmox-mcp/pkg/proxmox"
)

// ResourceKind identifies the kind of guest an action targets.
type ResourceKind string

const (
	KindVM        ResourceKind = "vm"
	KindContainer ResourceKind = "container"
)

// Valid reports whether the kind is one of the known guest kinds.
func (k ResourceKind) Valid() bool {
	return k == KindVM || k == KindContainer
}

// GuestType returns the PVE API path segment for the kind.
func (k ResourceKind) GuestType() string {
	if k == KindContainer {
		return proxmox.GuestLXC
	}
	return proxmox.GuestQemu
}

// ResourceRef identifies a guest on a node. It is a lookup key, not a handle:
// the referenced guest may not exist, in which case the cluster reports it.
type ResourceRef struct {
	Node string
	VMID int
}

func (r ResourceRef) String() string {
	return fmt.Sprintf("%s/%d", r.Node, r.VMID)
}

// ErrorKind classifies a failed invocation.
type ErrorKind string

const (
	// Local failures, detected before any remote call
	ErrUnknownAction           ErrorKind = "unknown_action"
	ErrDangerousActionDisabled ErrorKind = "dangerous_action_disabled"
	ErrInvalidParameter        ErrorKind = "invalid_parameter"

	// Remote failures, surfaced with the cluster's message preserved
	ErrRemoteAuthFailure    ErrorKind = "remote_auth_failure"
	ErrRemoteNotFound       ErrorKind = "remote_not_found"
	ErrRemoteConflict       ErrorKind = "remote_conflict"
	ErrRemoteTransportError ErrorKind = "remote_transport_error"
	ErrRemoteUnspecified    ErrorKind = "remote_unspecified_error"
)

// Outcome is the uniform result of an invocation. Success carries the task
// identifier (UPID) or inline payload the cluster returned; it means the
// request was accepted, not that the operation completed. Callers needing
// completion poll the task status separately.
type Outcome struct {
	OK      bool
	Result  string
	Kind    ErrorKind
	Message string
}

// Succeeded builds a success outcome carrying the remote payload.
func Succeeded(result string) Outcome {
	return Outcome{OK: true, Result: result}
}

// Failed builds a failure outcome of the given kind.
func Failed(kind ErrorKind, format string, args ...any) Outcome {
	return Outcome{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Local reports whether the failure was detected before any remote call.
func (o Outcome) Local() bool {
	switch o.Kind {
	case ErrUnknownAction, ErrDangerousActionDisabled, ErrInvalidParameter:
		return true
	}
	return false
}

func (o Outcome) String() string {
	if o.OK {
		return o.Result
	}
	return fmt.Sprintf("%s: %s", o.Kind, o.Message)
}
