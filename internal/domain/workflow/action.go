package workflow

import "fmt"

// Action is an intent a user submits against a report.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionCancel   Action = "cancel"
	ActionResubmit Action = "resubmit"
	// ActionEdit changes report content without moving its status.
	ActionEdit Action = "edit"
)

// ParseAction converts a raw string into an Action
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
	return a, nil
}

// IsValid returns true if the action is known
func (a Action) IsValid() bool {
	switch a {
	case ActionSubmit, ActionApprove, ActionReject, ActionCancel, ActionResubmit, ActionEdit:
		return true
	}
	return false
}

// IsTransition returns true if the action moves the report to another status
func (a Action) IsTransition() bool {
	return a.IsValid() && a != ActionEdit
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
