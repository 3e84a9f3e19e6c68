package actions

// Action names accepted by Invoke. The set is fixed; anything else is an
// unknown action regardless of gate state.
const (
	ActionStart    = "start"
	ActionStop     = "stop"
	ActionShutdown = "shutdown"
	ActionReboot   = "reboot"
	ActionReset    = "reset"
	ActionSuspend  = "suspend"
	ActionResume   = "resume"

	ActionCreateSnapshot   = "create-snapshot"
	ActionRollbackSnapshot = "rollback-snapshot"
	ActionDeleteSnapshot   = "delete-snapshot"

	ActionClone             = "clone"
	ActionMigrate           = "migrate"
	ActionConvertToTemplate = "convert-to-template"
	ActionDelete            = "delete"

	ActionCreateBackup      = "create-backup"
	ActionRestoreFromBackup = "restore-from-backup"
	ActionDeleteBackup      = "delete-backup"
)

// Classification decides whether an action needs the dangerous-action gate.
type Classification int

const (
	PermittedAlways Classification = iota
	PermittedIfDangerousMode
)

// routing group for an action: decides which remote operation carries it
type group int

const (
	groupLifecycle group = iota
	groupSnapshot
	groupClone
	groupDestructive
)

type actionSpec struct {
	classification Classification
	group          group
	remoteOp       string // op name for snapshot/destructive groups
}

// actionTable is the central policy artifact: one row per (kind, action) pair
// that may be dispatched. Keeping it as data makes the dangerous set auditable
// in one place instead of scattered per-handler checks.
var actionTable = map[ResourceKind]map[string]actionSpec{
	KindVM: {
		ActionStart:    {PermittedAlways, groupLifecycle, ""},
		ActionStop:     {PermittedAlways, groupLifecycle, ""},
		ActionShutdown: {PermittedAlways, groupLifecycle, ""},
		ActionReboot:   {PermittedAlways, groupLifecycle, ""},
		ActionReset:    {PermittedAlways, groupLifecycle, ""},
		ActionSuspend:  {PermittedAlways, groupLifecycle, ""},
		ActionResume:   {PermittedAlways, groupLifecycle, ""},

		ActionCreateSnapshot:   {PermittedAlways, groupSnapshot, "create"},
		ActionRollbackSnapshot: {PermittedIfDangerousMode, groupSnapshot, "rollback"},
		ActionDeleteSnapshot:   {PermittedIfDangerousMode, groupSnapshot, "delete"},

		ActionClone:             {PermittedIfDangerousMode, groupClone, ""},
		ActionMigrate:           {PermittedIfDangerousMode, groupDestructive, "migrate"},
		ActionConvertToTemplate: {PermittedIfDangerousMode, groupDestructive, "template"},
		ActionDelete:            {PermittedIfDangerousMode, groupDestructive, "delete"},

		ActionCreateBackup:      {PermittedAlways, groupDestructive, "backup"},
		ActionRestoreFromBackup: {PermittedIfDangerousMode, groupDestructive, "restore"},
		ActionDeleteBackup:      {PermittedIfDangerousMode, groupDestructive, "delete-backup"},
	},
	KindContainer: {
		ActionStart:    {PermittedAlways, groupLifecycle, ""},
		ActionStop:     {PermittedAlways, groupLifecycle, ""},
		ActionShutdown: {PermittedAlways, groupLifecycle, ""},
		ActionReboot:   {PermittedAlways, groupLifecycle, ""},
		// suspend/resume depend on guest kernel support; failures are
		// surfaced verbatim, never retried
		ActionSuspend: {PermittedAlways, groupLifecycle, ""},
		ActionResume:  {PermittedAlways, groupLifecycle, ""},

		ActionCreateSnapshot:   {PermittedAlways, groupSnapshot, "create"},
		ActionRollbackSnapshot: {PermittedIfDangerousMode, groupSnapshot, "rollback"},
		ActionDeleteSnapshot:   {PermittedIfDangerousMode, groupSnapshot, "delete"},

		ActionClone:             {PermittedIfDangerousMode, groupClone, ""},
		ActionMigrate:           {PermittedIfDangerousMode, groupDestructive, "migrate"},
		ActionConvertToTemplate: {PermittedIfDangerousMode, groupDestructive, "template"},
		ActionDelete:            {PermittedIfDangerousMode, groupDestructive, "delete"},

		ActionCreateBackup:      {PermittedAlways, groupDestructive, "backup"},
		ActionRestoreFromBackup: {PermittedIfDangerousMode, groupDestructive, "restore"},
		ActionDeleteBackup:      {PermittedIfDangerousMode, groupDestructive, "delete-backup"},
	},
}

// Classify returns the classification for a (kind, action) pair. The second
// return is false when the pair is not in the table.
func Classify(kind ResourceKind, action string) (Classification, bool) {
	spec, ok := actionTable[kind][action]
	if !ok {
		return PermittedAlways, false
	}
	return spec.classification, true
}

// KnownActions returns the action names valid for a kind, for diagnostics.
func KnownActions(kind ResourceKind) []string {
	names := make([]string, 0, len(actionTable[kind]))
	for name := range actionTable[kind] {
		names = append(names, name)
	}
	return names
}
