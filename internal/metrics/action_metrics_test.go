package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordActionInvoked(t *testing.T) {
	before := testutil.ToFloat64(ActionsInvokedTotal.WithLabelValues("vm", "start", "success"))
	RecordActionInvoked("vm", "start", "success")
	after := testutil.ToFloat64(ActionsInvokedTotal.WithLabelValues("vm", "start", "success"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}

func TestRecordDangerousActionBlocked(t *testing.T) {
	before := testutil.ToFloat64(DangerousActionsBlockedTotal.WithLabelValues("container", "delete"))
	RecordDangerousActionBlocked("container", "delete")
	after := testutil.ToFloat64(DangerousActionsBlockedTotal.WithLabelValues("container", "delete"))
	if after != before+1 {
		t.Errorf("expected counter to increase by 1, got %v -> %v", before, after)
	}
}
