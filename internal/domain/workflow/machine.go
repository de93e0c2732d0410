package workflow

// StateMachine tracks the current status and validates transitions
type StateMachine interface {
	// State returns the current status
	State() Status

	// CanFire returns true if the action is permitted in the current status
	CanFire(action Action) bool

	// Fire moves to the next status, or returns ErrInvalidTransition
	Fire(action Action) error

	// PermittedActions returns all actions that can be fired in the current status
	PermittedActions() []Action
}
