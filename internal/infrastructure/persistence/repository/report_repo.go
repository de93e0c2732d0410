package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// stageColumns maps each stage to its (actor, timestamp, comment) columns.
// Submission only keeps a timestamp; the author is the actor.
var stageColumns = map[workflow.Stage][3]string{
	workflow.StageSubmission:        {"", "submitted_at", ""},
	workflow.StageCoordinatorReview: {"coordinator_id", "coordinator_reviewed_at", "coordinator_comment"},
	workflow.StageManagerApproval:   {"manager_id", "manager_approved_at", "manager_comment"},
	workflow.StageFinalApproval:     {"final_approver_id", "final_approved_at", "final_comment"},
}

// ReportRepository implements port.ReportRepository
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB, logger *zap.Logger) port.ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	query := `
		INSERT INTO reports (
			id, department_id, department_name, author_id, report_type, status,
			submitted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		report.ID,
		report.DepartmentID,
		report.DepartmentName,
		report.AuthorID,
		string(report.Type),
		string(report.Status),
		nullTime(report.SubmittedAt),
		report.CreatedAt,
		report.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create report", zap.String("report_id", report.ID), zap.Error(err))
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	query := `
		SELECT id, department_id, department_name, author_id, report_type, status,
			submitted_at,
			coordinator_id, coordinator_reviewed_at, coordinator_comment,
			manager_id, manager_approved_at, manager_comment,
			final_approver_id, final_approved_at, final_comment,
			rejected_by, rejected_at, rejection_reason,
			created_at, updated_at
		FROM reports
		WHERE id = ?
	`

	var (
		report                            entity.Report
		reportType, status                string
		submittedAt                       sql.NullTime
		coordinatorID, coordinatorComment sql.NullString
		coordinatorAt                     sql.NullTime
		managerID, managerComment         sql.NullString
		managerAt                         sql.NullTime
		finalID, finalComment             sql.NullString
		finalAt                           sql.NullTime
		rejectedBy, rejectionReason       sql.NullString
		rejectedAt                        sql.NullTime
	)

	err := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.DepartmentID,
		&report.DepartmentName,
		&report.AuthorID,
		&reportType,
		&status,
		&submittedAt,
		&coordinatorID, &coordinatorAt, &coordinatorComment,
		&managerID, &managerAt, &managerComment,
		&finalID, &finalAt, &finalComment,
		&rejectedBy, &rejectedAt, &rejectionReason,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get report", zap.String("report_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report.Type = entity.ReportType(reportType)
	report.Status = workflow.Status(status)
	report.SubmittedAt = timePtr(submittedAt)
	report.CoordinatorID, report.CoordinatorReviewedAt, report.CoordinatorComment =
		coordinatorID.String, timePtr(coordinatorAt), coordinatorComment.String
	report.ManagerID, report.ManagerApprovedAt, report.ManagerComment =
		managerID.String, timePtr(managerAt), managerComment.String
	report.FinalApproverID, report.FinalApprovedAt, report.FinalComment =
		finalID.String, timePtr(finalAt), finalComment.String
	report.RejectedBy, report.RejectedAt, report.RejectionReason =
		rejectedBy.String, timePtr(rejectedAt), rejectionReason.String

	return &report, nil
}

// ApplyChanges updates only the columns touched by a transition
func (r *ReportRepository) ApplyChanges(ctx context.Context, id string, changes *workflow.Changes) error {
	sets := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{string(changes.To), changes.At}

	set := func(column string, value interface{}) {
		if column == "" {
			return
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	for _, stage := range changes.Clear {
		cols := stageColumns[stage]
		set(cols[0], nil)
		set(cols[1], nil)
		set(cols[2], nil)
	}

	if changes.Stamp != nil {
		cols, ok := stageColumns[changes.Stage]
		if !ok {
			return fmt.Errorf("no columns for stage %s", changes.Stage)
		}
		at := changes.Stamp.At
		set(cols[0], nullString(changes.Stamp.ActorID))
		set(cols[1], nullTime(&at))
		set(cols[2], nullString(changes.Stamp.Comment))
	}

	switch {
	case changes.Rejection != nil:
		at := changes.Rejection.At
		set("rejected_by", nullString(changes.Rejection.By))
		set("rejected_at", nullTime(&at))
		set("rejection_reason", nullString(changes.Rejection.Reason))
	case changes.ClearRejection:
		set("rejected_by", nil)
		set("rejected_at", nil)
		set("rejection_reason", nil)
	}

	query := "UPDATE reports SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update report",
			zap.String("report_id", id),
			zap.String("to_status", string(changes.To)),
			zap.Error(err))
		return fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("report %s: %w", id, port.ErrNotFound)
	}

	return nil
}

// Verify interface compliance
var _ port.ReportRepository = (*ReportRepository)(nil)
