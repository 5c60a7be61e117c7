package task

import "github.com/taskforge/backend/domain"

// Action enumerates the task operations gated by the authorization matrix.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionSetStatus    Action = "set-status"
	ActionSetChecklist Action = "set-checklist"
	ActionReassign     Action = "reassign"
	ActionDelete       Action = "delete"
)

// CanPerform is the single authorization matrix for task mutations, keyed on
// the actor's role and their relationship to the task (creator, assignee).
// Status and checklist updates deliberately grant different actor sets:
// the creator may declare a status, but only an assignee works the checklist.
func CanPerform(actor *domain.User, action Action, t *domain.Task) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}

	switch action {
	case ActionCreate, ActionReassign:
		return false
	case ActionUpdate, ActionDelete:
		return t != nil && t.CreatedBy == actor.ID
	case ActionSetStatus:
		return t != nil && (t.CreatedBy == actor.ID || t.IsAssignee(actor.ID))
	case ActionSetChecklist:
		return t != nil && t.IsAssignee(actor.ID)
	default:
		return false
	}
}
