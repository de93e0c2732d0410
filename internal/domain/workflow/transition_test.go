package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestMachine() *StatusMachine {
	return NewStatusMachine(WithClock(func() time.Time { return fixedNow }))
}

func TestStatusMachine_Approve(t *testing.T) {
	m := newTestMachine()
	actor := Actor{ID: "coord-1", Role: RoleCoordinator}

	changes, err := m.Apply(StatusSubmitted, ActionApprove, actor, "  looks good ")
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, changes.From)
	assert.Equal(t, StatusCoordinatorReviewed, changes.To)
	assert.Equal(t, StageCoordinatorReview, changes.Stage)
	require.NotNil(t, changes.Stamp)
	assert.Equal(t, "coord-1", changes.Stamp.ActorID)
	assert.Equal(t, fixedNow, changes.Stamp.At)
	assert.Equal(t, "looks good", changes.Stamp.Comment)
	assert.Nil(t, changes.Rejection)
	assert.Empty(t, changes.Clear)
}

func TestStatusMachine_ApproveWithoutComment(t *testing.T) {
	m := newTestMachine()

	changes, err := m.Apply(StatusManagerApproved, ActionApprove, Actor{ID: "dir-1", Role: RoleDirector}, "")
	require.NoError(t, err)
	assert.Equal(t, StatusFinalApproved, changes.To)
	assert.Equal(t, StageFinalApproval, changes.Stage)
	assert.Empty(t, changes.Stamp.Comment)
}

func TestStatusMachine_RejectRequiresComment(t *testing.T) {
	m := newTestMachine()

	for _, status := range []Status{StatusSubmitted, StatusCoordinatorReviewed, StatusManagerApproved} {
		for _, comment := range []string{"", "   ", "\t\n"} {
			_, err := m.Apply(status, ActionReject, Actor{ID: "r"}, comment)
			assert.ErrorIs(t, err, ErrCommentRequired, "status %s comment %q", status, comment)
			assert.True(t, IsValidationError(err))
		}
	}
}

func TestStatusMachine_Reject(t *testing.T) {
	m := newTestMachine()

	changes, err := m.Apply(StatusManagerApproved, ActionReject, Actor{ID: "dir-1"}, "insufficient budget detail")
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, changes.To)
	require.NotNil(t, changes.Rejection)
	assert.Equal(t, "dir-1", changes.Rejection.By)
	assert.Equal(t, "insufficient budget detail", changes.Rejection.Reason)
	assert.Nil(t, changes.Stamp, "rejection must not stamp a forward stage")
	assert.Empty(t, changes.Clear, "rejection keeps earlier stamps")
}

func TestStatusMachine_Resubmit(t *testing.T) {
	m := newTestMachine()

	changes, err := m.Apply(StatusRejected, ActionResubmit, Actor{ID: "author-1"}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusSubmitted, changes.To)
	assert.True(t, changes.ClearRejection)
	assert.Equal(t, StageSubmission, changes.Stage)
	assert.Equal(t, fixedNow, changes.Stamp.At)
	assert.Equal(t, []Stage{StageCoordinatorReview, StageManagerApproval, StageFinalApproval}, changes.Clear)
}

func TestStatusMachine_Cancel(t *testing.T) {
	m := newTestMachine()

	changes, err := m.Apply(StatusSubmitted, ActionCancel, Actor{ID: "author-1"}, "")
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, changes.To)
	assert.Equal(t, []Stage{StageSubmission}, changes.Clear)
	assert.Nil(t, changes.Stamp)
}

func TestStatusMachine_InvalidRequests(t *testing.T) {
	m := newTestMachine()

	_, err := m.Apply(StatusFinalApproved, ActionApprove, Actor{ID: "x"}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.Apply(StatusDraft, ActionEdit, Actor{ID: "x"}, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = m.Apply(Status("archived"), ActionApprove, Actor{ID: "x"}, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = m.Apply(StatusSubmitted, Action("escalate"), Actor{ID: "x"}, "")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestStageOf(t *testing.T) {
	stage, ok := StageOf(StatusCoordinatorReviewed)
	assert.True(t, ok)
	assert.Equal(t, StageCoordinatorReview, stage)

	_, ok = StageOf(StatusRejected)
	assert.False(t, ok)
}
