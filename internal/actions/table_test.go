package actions

import (
	"testing"
)

func TestClassify(t *testing.T) {
	dangerous := []struct {
		kind   ResourceKind
		action string
	}{
		{KindVM, ActionDelete},
		{KindVM, ActionRollbackSnapshot},
		{KindVM, ActionDeleteSnapshot},
		{KindVM, ActionClone},
		{KindVM, ActionConvertToTemplate},
		{KindVM, ActionMigrate},
		{KindVM, ActionRestoreFromBackup},
		{KindVM, ActionDeleteBackup},
		{KindContainer, ActionDelete},
		{KindContainer, ActionRollbackSnapshot},
		{KindContainer, ActionDeleteSnapshot},
		{KindContainer, ActionClone},
		{KindContainer, ActionConvertToTemplate},
		{KindContainer, ActionMigrate},
		{KindContainer, ActionRestoreFromBackup},
		{KindContainer, ActionDeleteBackup},
	}
	for _, tt := range dangerous {
		c, ok := Classify(tt.kind, tt.action)
		if !ok {
			t.Errorf("%s/%s missing from table", tt.kind, tt.action)
			continue
		}
		if c != PermittedIfDangerousMode {
			t.Errorf("%s/%s should require dangerous mode", tt.kind, tt.action)
		}
	}

	always := []struct {
		kind   ResourceKind
		action string
	}{
		{KindVM, ActionStart},
		{KindVM, ActionStop},
		{KindVM, ActionShutdown},
		{KindVM, ActionReboot},
		{KindVM, ActionReset},
		{KindVM, ActionSuspend},
		{KindVM, ActionResume},
		{KindVM, ActionCreateSnapshot},
		{KindVM, ActionCreateBackup},
		{KindContainer, ActionStart},
		{KindContainer, ActionStop},
		{KindContainer, ActionShutdown},
		{KindContainer, ActionReboot},
		{KindContainer, ActionSuspend},
		{KindContainer, ActionResume},
		{KindContainer, ActionCreateSnapshot},
		{KindContainer, ActionCreateBackup},
	}
	for _, tt := range always {
		c, ok := Classify(tt.kind, tt.action)
		if !ok {
			t.Errorf("%s/%s missing from table", tt.kind, tt.action)
			continue
		}
		if c != PermittedAlways {
			t.Errorf("%s/%s should not require dangerous mode", tt.kind, tt.action)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	if _, ok := Classify(KindVM, "frobnicate"); ok {
		t.Error("frobnicate should not be a known VM action")
	}
	if _, ok := Classify(KindContainer, ActionReset); ok {
		t.Error("reset should not be valid for containers")
	}
	if _, ok := Classify(ResourceKind("cluster"), ActionStart); ok {
		t.Error("unknown kinds should have no actions")
	}
}

func TestResourceKind(t *testing.T) {
	if !KindVM.Valid() || !KindContainer.Valid() {
		t.Error("expected built-in kinds to be valid")
	}
	if ResourceKind("vmx").Valid() {
		t.Error("unexpected valid kind")
	}
	if KindVM.GuestType() != "qemu" {
		t.Errorf("unexpected guest type %q", KindVM.GuestType())
	}
	if KindContainer.GuestType() != "lxc" {
		t.Errorf("unexpected guest type %q", KindContainer.GuestType())
	}
}

func TestKnownActions(t *testing.T) {
	vm := KnownActions(KindVM)
	ct := KnownActions(KindContainer)
	if len(vm) != len(ct)+1 {
		// VM additionally has reset
		t.Errorf("expected VM table to exceed container table by one action, got %d vs %d", len(vm), len(ct))
	}
}
