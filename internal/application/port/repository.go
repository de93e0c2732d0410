package port

import (
	"context"
	"errors"

	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// ReportRepository defines persistence operations for Report
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	GetByID(ctx context.Context, id string) (*entity.Report, error)

	// ApplyChanges writes only the columns a transition touches
	ApplyChanges(ctx context.Context, id string, changes *workflow.Changes) error
}

// HistoryRepository defines persistence operations for ApprovalHistory.
// There is deliberately no update or delete.
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApprovalHistory) error
	ListByReport(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	// BulkCreate writes all rows in a single statement and returns their ids
	BulkCreate(ctx context.Context, notifications []*entity.Notification) ([]int64, error)

	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)

	MarkSent(ctx context.Context, ids []int64) error
}

// AttendanceRepository defines persistence operations for AttendanceRecord
type AttendanceRepository interface {
	// UpsertBatch inserts or updates rows keyed by (member, date, type).
	// Existing rows with a different checked_via are left untouched.
	UpsertBatch(ctx context.Context, records []*entity.AttendanceRecord) error

	// DeleteOwned deletes the rows of memberIDs for date/type whose checked_via equals checkedVia
	DeleteOwned(ctx context.Context, date, attendanceType, checkedVia string, memberIDs []string) (int64, error)

	// DeleteReportElsewhere deletes the checkedVia rows of reportID that are not on date/type
	DeleteReportElsewhere(ctx context.Context, reportID, checkedVia, date, attendanceType string) (int64, error)

	ListByDate(ctx context.Context, date, attendanceType string) ([]*entity.AttendanceRecord, error)
}

// UserRepository defines read access to the user directory
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListActiveByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
