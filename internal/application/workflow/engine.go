package workflow

import (
	"context"
	"errors"

	"github.com/garyjia/report-approval/internal/application/service"
	"github.com/garyjia/report-approval/internal/domain/entity"
	domainwf "github.com/garyjia/report-approval/internal/domain/workflow"
)

// Side effect names, as reported in Result.SideEffects and logs
const (
	SideEffectHistory      = "history"
	SideEffectNotification = "notification"
	SideEffectAttendance   = "attendance"
)

// ErrNotCellBound is returned when attendance is edited on a report type without attendance
var ErrNotCellBound = errors.New("report type does not record attendance")

// Coordinator runs a single transition request end to end
type Coordinator interface {
	// Execute checks permission, applies the transition, persists it and then runs
	// history, notification and attendance side effects concurrently.
	// A non-nil error means nothing was changed.
	Execute(ctx context.Context, report *entity.Report, req Request) (*Result, error)

	// ExecuteByID loads the report and calls Execute
	ExecuteByID(ctx context.Context, reportID string, req Request) (*Result, error)

	// EditAttendance re-reconciles the attendance of a draft or rejected cell report
	// without changing its status. Only the author may do this.
	EditAttendance(ctx context.Context, reportID string, actor domainwf.Actor, sheet *entity.AttendanceSheet) (*service.SyncOutcome, error)
}

// Request is a transition intent
type Request struct {
	Action     domainwf.Action
	Actor      domainwf.Actor
	Comment    string
	Attendance *entity.AttendanceSheet
}

// SideEffectResult is the outcome of one post-transition operation
type SideEffectResult struct {
	Name    string
	Skipped bool
	Err     error
}

// OK reports whether the side effect ran without error or was skipped
func (s SideEffectResult) OK() bool {
	return s.Err == nil
}

// Result is returned for every applied transition
type Result struct {
	Report  *entity.Report
	Changes *domainwf.Changes

	History       *entity.ApprovalHistory
	Notifications *service.DispatchOutcome
	Attendance    *service.SyncOutcome

	SideEffects []SideEffectResult
}

// Degraded returns the side effects that failed
func (r *Result) Degraded() []SideEffectResult {
	var failed []SideEffectResult
	for _, s := range r.SideEffects {
		if !s.OK() {
			failed = append(failed, s)
		}
	}
	return failed
}

// SideEffect returns the result for name
func (r *Result) SideEffect(name string) (SideEffectResult, bool) {
	for _, s := range r.SideEffects {
		if s.Name == name {
			return s, true
		}
	}
	return SideEffectResult{}, false
}
