package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a forward sign-off step that leaves a stamp on the report.
type Stage int

const (
	StageSubmission Stage = iota + 1
	StageCoordinatorReview
	StageManagerApproval
	StageFinalApproval
)

var stageOrder = []Stage{StageSubmission, StageCoordinatorReview, StageManagerApproval, StageFinalApproval}

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageSubmission:
		return "submission"
	case StageCoordinatorReview:
		return "coordinator_review"
	case StageManagerApproval:
		return "manager_approval"
	case StageFinalApproval:
		return "final_approval"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// StageOf returns the stage whose stamp marks arrival in status
func StageOf(status Status) (Stage, bool) {
	switch status {
	case StatusSubmitted:
		return StageSubmission, true
	case StatusCoordinatorReviewed:
		return StageCoordinatorReview, true
	case StatusManagerApproved:
		return StageManagerApproval, true
	case StatusFinalApproved:
		return StageFinalApproval, true
	case StatusDraft, StatusRejected:
		return 0, false
	}
	return 0, false
}

// Stages returns the sign-off stages in lifecycle order
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// stagesAfter returns the stages strictly after s
func stagesAfter(s Stage) []Stage {
	for i, st := range stageOrder {
		if st == s {
			return append([]Stage(nil), stageOrder[i+1:]...)
		}
	}
	return nil
}

// Stamp records who signed off a stage, when, and with what comment
type Stamp struct {
	ActorID string
	At      time.Time
	Comment string
}

// Rejection records who rejected a report, when and why
type Rejection struct {
	By     string
	At     time.Time
	Reason string
}

// Changes is the partial update a transition makes to a report.
// Fields not named here must stay untouched.
type Changes struct {
	From    Status
	To      Status
	Action  Action
	ActorID string
	Comment string
	At      time.Time

	// Stage and Stamp are set when the destination stage gets a new stamp
	Stage Stage
	Stamp *Stamp

	// Clear lists stages whose stamps are removed
	Clear []Stage

	// Rejection is set on reject; ClearRejection on resubmission
	Rejection      *Rejection
	ClearRejection bool
}

// StatusMachine validates transition requests and computes their changes.
// It is safe for concurrent use.
type StatusMachine struct {
	lifecycle StateMachineBuilder
	now       func() time.Time
}

// MachineOption configures the status machine
type MachineOption func(*StatusMachine)

// WithClock sets the time source used for stamps
func WithClock(now func() time.Time) MachineOption {
	return func(m *StatusMachine) {
		m.now = now
	}
}

// NewStatusMachine creates a status machine for the report lifecycle
func NewStatusMachine(opts ...MachineOption) *StatusMachine {
	m := &StatusMachine{
		lifecycle: ReportLifecycle(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Next returns the status action leads to from current
func (m *StatusMachine) Next(current Status, action Action) (Status, error) {
	if !current.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, current)
	}
	if !action.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if !action.IsTransition() {
		return "", fmt.Errorf("%w: %s does not change status", ErrInvalidTransition, action)
	}

	machine := m.lifecycle.Build(current)
	if err := machine.Fire(action); err != nil {
		return "", err
	}
	return machine.State(), nil
}

// Apply validates action against current status and returns the changes it makes.
// Rejections must carry a non-blank comment.
func (m *StatusMachine) Apply(current Status, action Action, actor Actor, comment string) (*Changes, error) {
	to, err := m.Next(current, action)
	if err != nil {
		return nil, err
	}

	comment = strings.TrimSpace(comment)
	if action == ActionReject && comment == "" {
		return nil, fmt.Errorf("%w: rejection needs a reason", ErrCommentRequired)
	}

	now := m.now()
	changes := &Changes{
		From:    current,
		To:      to,
		Action:  action,
		ActorID: actor.ID,
		Comment: comment,
		At:      now,
	}

	switch action {
	case ActionSubmit:
		changes.Stage = StageSubmission
		changes.Stamp = &Stamp{ActorID: actor.ID, At: now}
	case ActionResubmit:
		// Stamps ahead of submitted belong to the rejected round; history keeps them.
		changes.Stage = StageSubmission
		changes.Stamp = &Stamp{ActorID: actor.ID, At: now}
		changes.Clear = stagesAfter(StageSubmission)
		changes.ClearRejection = true
	case ActionApprove:
		stage, _ := StageOf(to)
		changes.Stage = stage
		changes.Stamp = &Stamp{ActorID: actor.ID, At: now, Comment: comment}
	case ActionReject:
		changes.Rejection = &Rejection{By: actor.ID, At: now, Reason: comment}
	case ActionCancel:
		changes.Clear = []Stage{StageSubmission}
	case ActionEdit:
		return nil, fmt.Errorf("%w: %s does not change status", ErrInvalidTransition, action)
	}

	return changes, nil
}
