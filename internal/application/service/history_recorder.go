package service

import (
	"context"
	"fmt"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
)

// ApprovalHistoryRecorder appends one audit entry per accepted transition
type ApprovalHistoryRecorder struct {
	repo   port.HistoryRepository
	logger Logger
}

// NewApprovalHistoryRecorder creates a new ApprovalHistoryRecorder
func NewApprovalHistoryRecorder(repo port.HistoryRepository, logger Logger) *ApprovalHistoryRecorder {
	return &ApprovalHistoryRecorder{
		repo:   repo,
		logger: logger,
	}
}

// Record writes the history entry for changes applied to reportID
func (r *ApprovalHistoryRecorder) Record(ctx context.Context, reportID string, changes *workflow.Changes) (*entity.ApprovalHistory, error) {
	entry := &entity.ApprovalHistory{
		ReportID:   reportID,
		ApproverID: changes.ActorID,
		FromStatus: changes.From,
		ToStatus:   changes.To,
		Action:     changes.Action,
		Comment:    changes.Comment,
		CreatedAt:  changes.At,
	}

	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.Error("Failed to record approval history",
			"report_id", reportID,
			"from_status", changes.From,
			"to_status", changes.To,
			"error", err,
		)
		return nil, fmt.Errorf("record history: %w", err)
	}

	r.logger.Info("Approval history recorded",
		"report_id", reportID,
		"history_id", entry.ID,
		"action", changes.Action,
	)
	return entry, nil
}

// List returns the history of a report, oldest first
func (r *ApprovalHistoryRecorder) List(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error) {
	entries, err := r.repo.ListByReport(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}
