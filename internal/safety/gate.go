// Package safety holds the process-wide dangerous-action gate. The gate is
// resolved once at startup and never changes afterwards: allowing destructive
// Proxmox operations mid-flight without an operator restart would make the
// policy unauditable.
package safety

import "strings"

// Gate answers whether irreversible/destructive operations are allowed.
// The zero value is a disabled gate.
type Gate struct {
	enabled bool
}

// NewGate constructs a gate with a fixed state. Tests and the dispatcher use
// this directly; production code goes through Resolve.
func NewGate(enabled bool) Gate {
	return Gate{enabled: enabled}
}

// Resolve determines the gate state from the startup configuration surface.
// A command-line flag, when set, wins over the environment variable. With
// neither present the gate is disabled.
func Resolve(flagSet, flagValue bool, envValue string) Gate {
	if flagSet {
		return Gate{enabled: flagValue}
	}
	return Gate{enabled: parseAffirmative(envValue)}
}

// Enabled reports the cached gate state. No side effects, cannot fail.
func (g Gate) Enabled() bool {
	return g.enabled
}

// parseAffirmative interprets an environment value as a boolean. Only an
// affirmative token enables the gate; anything else, including absence,
// keeps it disabled.
func parseAffirmative(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
