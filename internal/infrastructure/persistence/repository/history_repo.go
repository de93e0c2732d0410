package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (
			report_id, approver_id, from_status, to_status, action, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		history.ReportID,
		history.ApproverID,
		string(history.FromStatus),
		string(history.ToStatus),
		string(history.Action),
		nullString(history.Comment),
		history.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("report_id", history.ReportID),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// ListByReport returns the history of a report, oldest first
func (r *HistoryRepository) ListByReport(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error) {
	query := `
		SELECT id, report_id, approver_id, from_status, to_status, action, comment, created_at
		FROM approval_history
		WHERE report_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ApprovalHistory
	for rows.Next() {
		var (
			h                entity.ApprovalHistory
			from, to, action string
			comment          sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.ReportID, &h.ApproverID, &from, &to, &action, &comment, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		h.FromStatus = workflow.Status(from)
		h.ToStatus = workflow.Status(to)
		h.Action = workflow.Action(action)
		h.Comment = comment.String
		entries = append(entries, &h)
	}

	return entries, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
