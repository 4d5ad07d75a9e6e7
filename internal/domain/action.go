package domain

// ActionKind names one executor action. Values double as metric labels and
// i18n message key segments.
type ActionKind string

const (
	ActionCloneCategory   ActionKind = "clonecategory"
	ActionCloneRole       ActionKind = "clonerole"
	ActionCopyPermissions ActionKind = "copyperms"
	ActionSaveTemplate    ActionKind = "savetemplate"
	ActionApplyTemplate   ActionKind = "applytemplate"
	ActionDeleteTemplate  ActionKind = "deletetemplate"
)

// ActionResult describes a successful action for display to the initiating user.
type ActionResult struct {
	Action   ActionKind
	GuildID  string
	Source   string
	Target   string
	TargetID string
	Channels int
}
