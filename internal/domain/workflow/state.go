package workflow

import "fmt"

// Status is the persisted lifecycle status of a report.
// The string values are stored verbatim and shared with other clients.
type Status string

const (
	StatusDraft               Status = "draft"
	StatusSubmitted           Status = "submitted"
	StatusCoordinatorReviewed Status = "coordinator_reviewed"
	StatusManagerApproved     Status = "manager_approved"
	StatusFinalApproved       Status = "final_approved"
	StatusRejected            Status = "rejected"
)

var allStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusCoordinatorReviewed,
	StatusManagerApproved,
	StatusFinalApproved,
	StatusRejected,
}

// Statuses returns every known status in lifecycle order
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a raw string into a Status
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// IsValid returns true if the status is one of the known lifecycle statuses
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusCoordinatorReviewed,
		StatusManagerApproved, StatusFinalApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true if no transition may leave the status.
// A rejected report is not terminal because its author may resubmit it.
func (s Status) IsTerminal() bool {
	return s == StatusFinalApproved
}

// IsPending returns true while the report waits for an approver
func (s Status) IsPending() bool {
	_, ok := ReviewerFor(s)
	return ok
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
