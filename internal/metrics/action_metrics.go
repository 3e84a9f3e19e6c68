package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsInvokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxmox_mcp_actions_invoked_total",
			Help: "Total number of action invocations by resource kind, action and outcome",
		},
		[]string{"kind", "action", "outcome"},
	)

	DangerousActionsBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proxmox_mcp_dangerous_actions_blocked_total",
			Help: "Total number of dangerous actions refused because dangerous mode is disabled",
		},
		[]string{"kind", "action"},
	)
)

// RecordActionInvoked records the outcome of a dispatched action.
func RecordActionInvoked(kind, action, outcome string) {
	ActionsInvokedTotal.WithLabelValues(kind, action, outcome).Inc()
}

// RecordDangerousActionBlocked records a gate refusal.
func RecordDangerousActionBlocked(kind, action string) {
	DangerousActionsBlockedTotal.WithLabelValues(kind, action).Inc()
}
