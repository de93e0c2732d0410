package workflow

import "fmt"

// Role is the organisational role of a user.
type Role string

const (
	// RoleMember has no approval rights; members only act on their own reports.
	RoleMember Role = "member"
	// RoleCoordinator is the tier-1 approver.
	RoleCoordinator Role = "coordinator"
	// RoleManager is the tier-2 approver.
	RoleManager Role = "manager"
	// RoleDirector is the tier-3 (final) approver.
	RoleDirector Role = "director"
)

var allRoles = []Role{RoleMember, RoleCoordinator, RoleManager, RoleDirector}

// Roles returns every known role
func Roles() []Role {
	return append([]Role(nil), allRoles...)
}

// ParseRole converts a raw string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// IsValid returns true if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleCoordinator, RoleManager, RoleDirector:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ReviewerFor returns the role that signs off a report waiting in status s.
func ReviewerFor(s Status) (Role, bool) {
	switch s {
	case StatusSubmitted:
		return RoleCoordinator, true
	case StatusCoordinatorReviewed:
		return RoleManager, true
	case StatusManagerApproved:
		return RoleDirector, true
	case StatusDraft, StatusFinalApproved, StatusRejected:
		return "", false
	}
	return "", false
}
