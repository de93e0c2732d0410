package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the action cannot move a report out of its status
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidStatus is returned when a status is not valid
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidRole is returned when a role is not valid
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidAction is returned when an action is not valid
	ErrInvalidAction = errors.New("invalid action")

	// ErrNotPermitted is returned when the actor may not perform the action
	ErrNotPermitted = errors.New("action not permitted")

	// ErrCommentRequired is returned when a rejection carries no reason
	ErrCommentRequired = errors.New("comment is required")
)

// IsValidationError reports whether err is a request validation failure
// (as opposed to a permission denial or an infrastructure error).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrCommentRequired) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidRole)
}
