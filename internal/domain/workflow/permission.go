package workflow

// Actor identifies the user asking for an action.
type Actor struct {
	ID   string
	Role Role
}

// Permission is the set of actions an actor may take on a report.
// The zero value denies everything.
type Permission struct {
	actions []Action
}

// Allows reports whether the permission covers action
func (p Permission) Allows(action Action) bool {
	for _, a := range p.actions {
		if a == action {
			return true
		}
	}
	return false
}

// Denied reports whether no action is allowed
func (p Permission) Denied() bool {
	return len(p.actions) == 0
}

// Actions returns the allowed actions
func (p Permission) Actions() []Action {
	return append([]Action(nil), p.actions...)
}

// Resolve returns what actor may do with a report written by authorID that
// currently sits in status. It never fails; an unknown role or status is denied.
func Resolve(actor Actor, authorID string, status Status) Permission {
	var actions []Action
	actions = append(actions, reviewerActions(actor.Role, status)...)
	if actor.ID != "" && actor.ID == authorID {
		actions = append(actions, authorActions(status)...)
	}
	return Permission{actions: actions}
}

// reviewerActions is the approver half of the permission table.
// Every role is listed so a new role has to be placed explicitly.
func reviewerActions(role Role, status Status) []Action {
	review := []Action{ActionApprove, ActionReject}

	switch role {
	case RoleCoordinator:
		if status == StatusSubmitted {
			return review
		}
	case RoleManager:
		if status == StatusCoordinatorReviewed {
			return review
		}
	case RoleDirector:
		if status == StatusManagerApproved {
			return review
		}
	case RoleMember:
		return nil
	}
	return nil
}

// authorActions is the author half of the permission table.
// Edit on draft and rejected implies the matching submit action.
func authorActions(status Status) []Action {
	switch status {
	case StatusDraft:
		return []Action{ActionEdit, ActionSubmit}
	case StatusSubmitted:
		return []Action{ActionCancel}
	case StatusRejected:
		return []Action{ActionEdit, ActionResubmit}
	case StatusCoordinatorReviewed, StatusManagerApproved, StatusFinalApproved:
		return nil
	}
	return nil
}
