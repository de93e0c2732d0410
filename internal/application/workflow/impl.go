package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/application/service"
	"github.com/garyjia/report-approval/internal/domain/entity"
	domainwf "github.com/garyjia/report-approval/internal/domain/workflow"
)

// coordinatorImpl is the concrete implementation of Coordinator
type coordinatorImpl struct {
	reports     port.ReportRepository
	machine     *domainwf.StatusMachine
	history     *service.ApprovalHistoryRecorder
	notifier    *service.NotificationDispatcher
	attendance  *service.AttendanceSynchronizer
	logger      service.Logger
	checkedVia  string
	defaultType string
}

// CoordinatorOption configures the coordinator
type CoordinatorOption func(*coordinatorImpl)

// WithStatusMachine replaces the default status machine
func WithStatusMachine(m *domainwf.StatusMachine) CoordinatorOption {
	return func(c *coordinatorImpl) {
		c.machine = m
	}
}

// WithAttendanceProvenance sets the checked_via tag this coordinator owns and
// the attendance type used when a sheet does not name one
func WithAttendanceProvenance(checkedVia, defaultType string) CoordinatorOption {
	return func(c *coordinatorImpl) {
		if checkedVia != "" {
			c.checkedVia = checkedVia
		}
		if defaultType != "" {
			c.defaultType = defaultType
		}
	}
}

// NewCoordinator creates a new workflow coordinator
func NewCoordinator(
	reports port.ReportRepository,
	history *service.ApprovalHistoryRecorder,
	notifier *service.NotificationDispatcher,
	attendance *service.AttendanceSynchronizer,
	logger service.Logger,
	opts ...CoordinatorOption,
) Coordinator {
	c := &coordinatorImpl{
		reports:     reports,
		machine:     domainwf.NewStatusMachine(),
		history:     history,
		notifier:    notifier,
		attendance:  attendance,
		logger:      logger,
		checkedVia:  entity.CheckedViaCellReport,
		defaultType: entity.AttendanceTypeCellMeeting,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute runs one transition request
func (c *coordinatorImpl) Execute(ctx context.Context, report *entity.Report, req Request) (*Result, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}

	perm := domainwf.Resolve(req.Actor, report.AuthorID, report.Status)
	if !perm.Allows(req.Action) {
		c.logger.Info("Transition denied",
			"report_id", report.ID,
			"actor_id", req.Actor.ID,
			"role", req.Actor.Role,
			"status", report.Status,
			"action", req.Action,
		)
		return nil, fmt.Errorf("%w: %s cannot %s a %s report", domainwf.ErrNotPermitted, req.Actor.Role, req.Action, report.Status)
	}

	changes, err := c.machine.Apply(report.Status, req.Action, req.Actor, req.Comment)
	if err != nil {
		return nil, err
	}

	var reconcile *service.ReconcileRequest
	if c.syncsAttendance(report, req.Action) {
		if req.Attendance == nil {
			c.logger.Info("Attendance sync skipped",
				"report_id", report.ID,
				"action", req.Action,
				"reason", "no attendance sheet",
			)
		} else {
			r, err := c.reconcileRequest(report, req.Actor, req.Attendance)
			if err != nil {
				return nil, err
			}
			reconcile = r
		}
	}

	if err := c.reports.ApplyChanges(ctx, report.ID, changes); err != nil {
		c.logger.Error("Failed to persist transition",
			"report_id", report.ID,
			"from_status", changes.From,
			"to_status", changes.To,
			"error", err,
		)
		return nil, fmt.Errorf("persist transition: %w", err)
	}

	updated := report.Clone()
	updated.Apply(changes)

	result := &Result{Report: updated, Changes: changes}
	c.runSideEffects(context.WithoutCancel(ctx), updated, changes, reconcile, result)

	c.logger.Info("Transition applied",
		"report_id", report.ID,
		"action", changes.Action,
		"from_status", changes.From,
		"to_status", changes.To,
		"degraded", len(result.Degraded()),
	)
	return result, nil
}

// ExecuteByID loads the report and runs the request against it
func (c *coordinatorImpl) ExecuteByID(ctx context.Context, reportID string, req Request) (*Result, error) {
	report, err := c.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return c.Execute(ctx, report, req)
}

// EditAttendance reconciles a new sheet for a report the author may still edit
func (c *coordinatorImpl) EditAttendance(ctx context.Context, reportID string, actor domainwf.Actor, sheet *entity.AttendanceSheet) (*service.SyncOutcome, error) {
	report, err := c.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}

	if !domainwf.Resolve(actor, report.AuthorID, report.Status).Allows(domainwf.ActionEdit) {
		return nil, fmt.Errorf("%w: %s cannot edit a %s report", domainwf.ErrNotPermitted, actor.Role, report.Status)
	}
	if !report.Type.IsCellBound() {
		return nil, ErrNotCellBound
	}

	req, err := c.reconcileRequest(report, actor, sheet)
	if err != nil {
		return nil, err
	}

	return c.attendance.Reconcile(ctx, *req)
}

// runSideEffects runs the post-transition operations concurrently and records each outcome.
// Failures are logged here and never undo the transition.
func (c *coordinatorImpl) runSideEffects(ctx context.Context, report *entity.Report, changes *domainwf.Changes, reconcile *service.ReconcileRequest, result *Result) {
	effects := []SideEffectResult{
		{Name: SideEffectHistory},
		{Name: SideEffectNotification},
		{Name: SideEffectAttendance, Skipped: reconcile == nil},
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		result.History, effects[0].Err = c.history.Record(ctx, report.ID, changes)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		result.Notifications, effects[1].Err = c.notifier.Dispatch(ctx, service.Transition{
			ReportID:       report.ID,
			FromStatus:     changes.From,
			ToStatus:       changes.To,
			DepartmentName: report.DepartmentName,
			ReportType:     report.Type,
			AuthorID:       report.AuthorID,
		})
		if effects[1].Err == nil && result.Notifications != nil && result.Notifications.Skipped {
			effects[1].Skipped = true
		}
	}()

	if reconcile != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Attendance, effects[2].Err = c.attendance.Reconcile(ctx, *reconcile)
		}()
	}

	wg.Wait()

	for _, e := range effects {
		if e.Err != nil {
			c.logger.Error("Side effect failed",
				"report_id", report.ID,
				"operation", e.Name,
				"error", e.Err,
			)
		}
	}
	result.SideEffects = effects
}

// syncsAttendance reports whether an action reconciles the report's attendance sheet
func (c *coordinatorImpl) syncsAttendance(report *entity.Report, action domainwf.Action) bool {
	if !report.Type.IsCellBound() {
		return false
	}
	switch action {
	case domainwf.ActionSubmit, domainwf.ActionResubmit:
		return true
	case domainwf.ActionApprove, domainwf.ActionReject, domainwf.ActionCancel, domainwf.ActionEdit:
		return false
	}
	return false
}

func (c *coordinatorImpl) reconcileRequest(report *entity.Report, actor domainwf.Actor, sheet *entity.AttendanceSheet) (*service.ReconcileRequest, error) {
	if sheet == nil {
		return nil, fmt.Errorf("%w: attendance sheet is required", service.ErrInvalidAttendance)
	}

	attendanceType := sheet.Type
	if attendanceType == "" {
		attendanceType = c.defaultType
	}

	req := &service.ReconcileRequest{
		ReportID:           report.ID,
		Date:               sheet.Date,
		AttendanceType:     attendanceType,
		PresentMemberIDs:   sheet.PresentMemberIDs,
		CandidateMemberIDs: sheet.CandidateMemberIDs,
		CheckedVia:         c.checkedVia,
		ActorID:            actor.ID,
	}
	if err := service.ValidateReconcile(*req); err != nil {
		return nil, err
	}
	return req, nil
}

// Verify interface compliance
var _ Coordinator = (*coordinatorImpl)(nil)
