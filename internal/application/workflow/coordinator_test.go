package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/report-approval/internal/application/dispatcher"
	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/application/service"
	"github.com/garyjia/report-approval/internal/domain/entity"
	domainwf "github.com/garyjia/report-approval/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	author      = domainwf.Actor{ID: "author-1", Role: domainwf.RoleMember}
	coordinator = domainwf.Actor{ID: "c-1", Role: domainwf.RoleCoordinator}
	manager     = domainwf.Actor{ID: "m-1", Role: domainwf.RoleManager}
	director    = domainwf.Actor{ID: "d-1", Role: domainwf.RoleDirector}
)

type fixture struct {
	reports    *mockReportRepo
	history    *mockHistoryRepo
	notes      *mockNotificationRepo
	attendance *mockAttendanceRepo
	sender     *mockPushSender
	logger     *mockLogger
	runner     dispatcher.Runner
	c          Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reports:    &mockReportRepo{reports: make(map[string]*entity.Report)},
		history:    &mockHistoryRepo{},
		notes:      &mockNotificationRepo{},
		attendance: &mockAttendanceRepo{rows: make(map[attendanceKey]*entity.AttendanceRecord)},
		sender:     &mockPushSender{},
		logger:     &mockLogger{},
		runner:     dispatcher.NewRunner(),
	}
	t.Cleanup(func() { _ = f.runner.Close() })

	users := &mockUserRepo{users: []*entity.User{
		{ID: "c-1", Role: domainwf.RoleCoordinator, Active: true},
		{ID: "m-1", Role: domainwf.RoleManager, Active: true},
		{ID: "m-2", Role: domainwf.RoleManager, Active: true},
		{ID: "m-3", Role: domainwf.RoleManager, Active: false},
		{ID: "d-1", Role: domainwf.RoleDirector, Active: true},
	}}

	f.c = NewCoordinator(
		f.reports,
		service.NewApprovalHistoryRecorder(f.history, f.logger),
		service.NewNotificationDispatcher(users, f.notes, f.sender, f.runner, f.logger),
		service.NewAttendanceSynchronizer(f.attendance, mockTxManager{}, f.logger),
		f.logger,
	)
	return f
}

func (f *fixture) seed(t *testing.T, status domainwf.Status, reportType entity.ReportType) *entity.Report {
	t.Helper()
	now := time.Now()
	r := &entity.Report{
		ID:             "r-1",
		DepartmentID:   "dept-1",
		DepartmentName: "North",
		AuthorID:       author.ID,
		Type:           reportType,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status != domainwf.StatusDraft {
		r.SubmittedAt = &now
	}
	require.NoError(t, f.reports.Create(context.Background(), r))
	return r
}

func (f *fixture) stored(t *testing.T) *entity.Report {
	t.Helper()
	r, err := f.reports.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	return r
}

func waitPush(t *testing.T, result *Result) {
	t.Helper()
	require.NotNil(t, result.Notifications)
	require.NotNil(t, result.Notifications.Push)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = result.Notifications.Push.Wait(ctx)
}

func TestCoordinator_ScenarioA_CoordinatorApproves(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusSubmitted, entity.ReportTypeWeekly)

	result, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionApprove, Actor: coordinator})
	require.NoError(t, err)
	assert.Empty(t, result.Degraded())

	assert.Equal(t, domainwf.StatusCoordinatorReviewed, result.Report.Status)
	assert.Equal(t, domainwf.StatusCoordinatorReviewed, f.stored(t).Status)
	assert.Equal(t, "c-1", f.stored(t).CoordinatorID)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domainwf.StatusSubmitted, f.history.entries[0].FromStatus)
	assert.Equal(t, domainwf.StatusCoordinatorReviewed, f.history.entries[0].ToStatus)

	assert.Equal(t, []string{"m-1", "m-2"}, f.notes.recipients())

	waitPush(t, result)
	sent := f.sender.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"m-1", "m-2"}, sent[0].UserIDs)

	attendance, ok := result.SideEffect(SideEffectAttendance)
	require.True(t, ok)
	assert.True(t, attendance.Skipped)
}

func TestCoordinator_ScenarioB_DirectorRejects(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusManagerApproved, entity.ReportTypeWeekly)

	result, err := f.c.Execute(context.Background(), report, Request{
		Action:  domainwf.ActionReject,
		Actor:   director,
		Comment: "insufficient budget detail",
	})
	require.NoError(t, err)

	stored := f.stored(t)
	assert.Equal(t, domainwf.StatusRejected, stored.Status)
	assert.Equal(t, "d-1", stored.RejectedBy)
	assert.Equal(t, "insufficient budget detail", stored.RejectionReason)
	assert.NotNil(t, stored.RejectedAt)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, []string{"author-1"}, f.notes.recipients())
	assert.True(t, strings.Contains(f.notes.rows[0].Body, "rejected"))

	waitPush(t, result)
}

func TestCoordinator_ScenarioC_AuthorCancels(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusSubmitted, entity.ReportTypeWeekly)

	result, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionCancel, Actor: author})
	require.NoError(t, err)

	stored := f.stored(t)
	assert.Equal(t, domainwf.StatusDraft, stored.Status)
	assert.Nil(t, stored.SubmittedAt)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domainwf.StatusSubmitted, f.history.entries[0].FromStatus)
	assert.Equal(t, domainwf.StatusDraft, f.history.entries[0].ToStatus)

	notification, ok := result.SideEffect(SideEffectNotification)
	require.True(t, ok)
	assert.True(t, notification.Skipped)
	assert.Nil(t, result.Notifications.Push)
	assert.Empty(t, f.notes.recipients())
	assert.Empty(t, f.sender.sent())
}

func TestCoordinator_ScenarioD_AttendanceEditedTwice(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)

	// A manual-grid row for an unrelated member on the same date
	require.NoError(t, f.attendance.UpsertBatch(context.Background(), []*entity.AttendanceRecord{{
		MemberID: "y", AttendanceDate: "2026-03-01", AttendanceType: entity.AttendanceTypeCellMeeting,
		IsPresent: true, CheckedBy: "admin", CheckedVia: entity.CheckedViaManualGrid,
	}}))

	sheet := &entity.AttendanceSheet{
		Date:               "2026-03-01",
		PresentMemberIDs:   []string{"x", "z"},
		CandidateMemberIDs: []string{"x", "y", "z"},
	}
	result, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionSubmit, Actor: author, Attendance: sheet})
	require.NoError(t, err)
	assert.Empty(t, result.Degraded())
	waitPush(t, result)

	// Sent back, then edited with x absent
	_, err = f.c.ExecuteByID(context.Background(), "r-1", Request{Action: domainwf.ActionReject, Actor: coordinator, Comment: "fix attendance"})
	require.NoError(t, err)

	edited := &entity.AttendanceSheet{
		Date:               "2026-03-01",
		PresentMemberIDs:   []string{"z"},
		CandidateMemberIDs: []string{"x", "y", "z"},
	}
	outcome, err := f.c.EditAttendance(context.Background(), "r-1", author, edited)
	require.NoError(t, err)
	assert.Equal(t, int64(1), outcome.Deleted)

	rows, err := f.attendance.ListByDate(context.Background(), "2026-03-01", entity.AttendanceTypeCellMeeting)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "y", rows[0].MemberID)
	assert.Equal(t, entity.CheckedViaManualGrid, rows[0].CheckedVia)
	assert.Equal(t, "z", rows[1].MemberID)

	// Resubmitting with the same sheet changes nothing
	result, err = f.c.ExecuteByID(context.Background(), "r-1", Request{Action: domainwf.ActionResubmit, Actor: author, Attendance: edited})
	require.NoError(t, err)
	assert.Empty(t, result.Degraded())
	waitPush(t, result)

	after, err := f.attendance.ListByDate(context.Background(), "2026-03-01", entity.AttendanceTypeCellMeeting)
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestCoordinator_Denied(t *testing.T) {
	tests := []struct {
		name   string
		status domainwf.Status
		req    Request
	}{
		{"manager on submitted", domainwf.StatusSubmitted, Request{Action: domainwf.ActionApprove, Actor: manager}},
		{"coordinator on coordinator_reviewed", domainwf.StatusCoordinatorReviewed, Request{Action: domainwf.ActionApprove, Actor: coordinator}},
		{"non-author cancel", domainwf.StatusSubmitted, Request{Action: domainwf.ActionCancel, Actor: coordinator}},
		{"approve final_approved", domainwf.StatusFinalApproved, Request{Action: domainwf.ActionApprove, Actor: director}},
		{"author approves own report", domainwf.StatusSubmitted, Request{Action: domainwf.ActionApprove, Actor: author}},
		{"resubmit by other", domainwf.StatusRejected, Request{Action: domainwf.ActionResubmit, Actor: coordinator}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			report := f.seed(t, tt.status, entity.ReportTypeWeekly)

			result, err := f.c.Execute(context.Background(), report, tt.req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domainwf.ErrNotPermitted)
			assert.Zero(t, f.reports.applied)
			assert.Empty(t, f.history.entries)
			assert.Empty(t, f.notes.recipients())
		})
	}
}

func TestCoordinator_ValidationFailure(t *testing.T) {
	for _, comment := range []string{"", "   ", "\n\t"} {
		f := newFixture(t)
		report := f.seed(t, domainwf.StatusCoordinatorReviewed, entity.ReportTypeWeekly)

		_, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionReject, Actor: manager, Comment: comment})
		assert.ErrorIs(t, err, domainwf.ErrCommentRequired)
		assert.True(t, domainwf.IsValidationError(err))
		assert.Zero(t, f.reports.applied)
		assert.Empty(t, f.history.entries)
	}
}

func TestCoordinator_InvalidAttendanceRejectedBeforeWrite(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)

	_, err := f.c.Execute(context.Background(), report, Request{
		Action:     domainwf.ActionSubmit,
		Actor:      author,
		Attendance: &entity.AttendanceSheet{Date: "yesterday", CandidateMemberIDs: []string{"x"}},
	})
	assert.ErrorIs(t, err, service.ErrInvalidAttendance)
	assert.Zero(t, f.reports.applied)
}

func TestCoordinator_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusSubmitted, entity.ReportTypeWeekly)
	f.reports.applyErr = errStore

	result, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionApprove, Actor: coordinator})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, errStore)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.notes.recipients())
	assert.Empty(t, f.sender.sent())
}

func TestCoordinator_PartialFailuresDoNotFailTransition(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)
	f.history.err = errors.New("history down")
	f.notes.err = errors.New("notifications down")
	f.attendance.err = errors.New("attendance down")

	result, err := f.c.Execute(context.Background(), report, Request{
		Action: domainwf.ActionSubmit,
		Actor:  author,
		Attendance: &entity.AttendanceSheet{
			Date:               "2026-03-01",
			PresentMemberIDs:   []string{"x"},
			CandidateMemberIDs: []string{"x"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domainwf.StatusSubmitted, f.stored(t).Status)

	require.Len(t, result.SideEffects, 3)
	assert.Len(t, result.Degraded(), 3)
	assert.Equal(t, []string{SideEffectAttendance, SideEffectHistory, SideEffectNotification}, f.logger.failedOperations())

	// The push request still goes out after a failed bulk write
	waitPush(t, result)
	assert.Len(t, f.sender.sent(), 1)
}

func TestCoordinator_PushFailureIsNotDegradation(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusSubmitted, entity.ReportTypeWeekly)
	f.sender.err = errors.New("push endpoint down")

	result, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionApprove, Actor: coordinator})
	require.NoError(t, err)
	assert.Empty(t, result.Degraded())
	waitPush(t, result)
}

func TestCoordinator_ExecuteByID_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.ExecuteByID(context.Background(), "missing", Request{Action: domainwf.ActionApprove, Actor: coordinator})
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestCoordinator_EditAttendance(t *testing.T) {
	sheet := &entity.AttendanceSheet{Date: "2026-03-01", PresentMemberIDs: []string{"x"}, CandidateMemberIDs: []string{"x"}}

	t.Run("submitted report cannot be edited", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, domainwf.StatusSubmitted, entity.ReportTypeCell)

		_, err := f.c.EditAttendance(context.Background(), "r-1", author, sheet)
		assert.ErrorIs(t, err, domainwf.ErrNotPermitted)
	})

	t.Run("other users cannot edit", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)

		_, err := f.c.EditAttendance(context.Background(), "r-1", coordinator, sheet)
		assert.ErrorIs(t, err, domainwf.ErrNotPermitted)
	})

	t.Run("report without attendance", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, domainwf.StatusDraft, entity.ReportTypeWeekly)

		_, err := f.c.EditAttendance(context.Background(), "r-1", author, sheet)
		assert.ErrorIs(t, err, ErrNotCellBound)
	})

	t.Run("draft edit reconciles without a transition", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)

		outcome, err := f.c.EditAttendance(context.Background(), "r-1", author, sheet)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, outcome.Present)
		assert.Equal(t, domainwf.StatusDraft, f.stored(t).Status)
		assert.Empty(t, f.history.entries)
	})
}

// rendezvous blocks each caller until n callers have arrived or the timeout passes
type rendezvous struct {
	arrived sync.WaitGroup
	all     chan struct{}
}

func newRendezvous(n int) *rendezvous {
	r := &rendezvous{all: make(chan struct{})}
	r.arrived.Add(n)
	go func() {
		r.arrived.Wait()
		close(r.all)
	}()
	return r
}

func (r *rendezvous) arrive(t *testing.T, name string) {
	r.arrived.Done()
	select {
	case <-r.all:
	case <-time.After(2 * time.Second):
		t.Errorf("%s did not run alongside the other side effects", name)
	}
}

func TestCoordinator_SideEffectsRunConcurrentlyAfterUpdate(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)

	meet := newRendezvous(3)
	hook := func(name string) func() {
		return func() {
			assert.Equal(t, 1, f.reports.appliedCount(), "%s started before the report update", name)
			meet.arrive(t, name)
		}
	}
	f.history.onCreate = hook("history")
	f.notes.onBulkCreate = hook("notification")
	f.attendance.onUpsert = hook("attendance")

	result, err := f.c.Execute(context.Background(), report, Request{
		Action: domainwf.ActionSubmit,
		Actor:  author,
		Attendance: &entity.AttendanceSheet{
			Date:               "2026-03-01",
			PresentMemberIDs:   []string{"x"},
			CandidateMemberIDs: []string{"x", "y"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Degraded())
	waitPush(t, result)
}

func TestCoordinator_SideEffectsWaitForFailedUpdate(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)
	f.reports.applyErr = errors.New("disk full")

	var started sync.Map
	f.history.onCreate = func() { started.Store("history", true) }
	f.notes.onBulkCreate = func() { started.Store("notification", true) }
	f.attendance.onUpsert = func() { started.Store("attendance", true) }

	_, err := f.c.Execute(context.Background(), report, Request{
		Action:     domainwf.ActionSubmit,
		Actor:      author,
		Attendance: &entity.AttendanceSheet{Date: "2026-03-01", CandidateMemberIDs: []string{"x"}},
	})
	require.Error(t, err)

	started.Range(func(k, _ interface{}) bool {
		t.Errorf("%v ran after the update failed", k)
		return true
	})
}

func TestCoordinator_EditAttendanceMovesDate(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)
	ctx := context.Background()

	result, err := f.c.Execute(ctx, report, Request{
		Action:     domainwf.ActionSubmit,
		Actor:      author,
		Attendance: &entity.AttendanceSheet{Date: "2026-10-11", PresentMemberIDs: []string{"x"}, CandidateMemberIDs: []string{"x"}},
	})
	require.NoError(t, err)
	waitPush(t, result)

	_, err = f.c.ExecuteByID(ctx, "r-1", Request{Action: domainwf.ActionReject, Actor: coordinator, Comment: "wrong week"})
	require.NoError(t, err)

	outcome, err := f.c.EditAttendance(ctx, "r-1", author, &entity.AttendanceSheet{
		Date:               "2026-10-12",
		CandidateMemberIDs: []string{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), outcome.Deleted)

	old, err := f.attendance.ListByDate(ctx, "2026-10-11", entity.AttendanceTypeCellMeeting)
	require.NoError(t, err)
	assert.Empty(t, old)

	moved, err := f.attendance.ListByDate(ctx, "2026-10-12", entity.AttendanceTypeCellMeeting)
	require.NoError(t, err)
	assert.Empty(t, moved)
}

func TestCoordinator_CellSubmitWithoutSheetLogsSkip(t *testing.T) {
	f := newFixture(t)
	report := f.seed(t, domainwf.StatusDraft, entity.ReportTypeCell)

	result, err := f.c.Execute(context.Background(), report, Request{Action: domainwf.ActionSubmit, Actor: author})
	require.NoError(t, err)
	waitPush(t, result)

	assert.Nil(t, result.Attendance)
	assert.True(t, f.logger.hasInfo("Attendance sync skipped"))
	for _, e := range result.SideEffects {
		if e.Name == SideEffectAttendance {
			assert.True(t, e.Skipped)
		}
	}
}
