package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
	"github.com/google/uuid"
)

var (
	// ErrInvalidReport is returned when a draft cannot be created from the input
	ErrInvalidReport = errors.New("invalid report")

	// ErrInactiveUser is returned when a deactivated user tries to act
	ErrInactiveUser = errors.New("user is inactive")
)

// CreateReportInput holds the fields of a new draft
type CreateReportInput struct {
	DepartmentID   string
	DepartmentName string
	Type           entity.ReportType
}

// ReportService covers report reads and draft creation
type ReportService interface {
	CreateDraft(ctx context.Context, author *entity.User, in CreateReportInput) (*entity.Report, error)
	Get(ctx context.Context, id string) (*entity.Report, error)
	Permissions(report *entity.Report, actor workflow.Actor) workflow.Permission
	History(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error)
	Notifications(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)
	ResolveActor(ctx context.Context, userID string) (*entity.User, error)
}

type reportServiceImpl struct {
	reports       port.ReportRepository
	history       *ApprovalHistoryRecorder
	notifications port.NotificationRepository
	users         port.UserRepository
	logger        Logger
	now           func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	reports port.ReportRepository,
	history *ApprovalHistoryRecorder,
	notifications port.NotificationRepository,
	users port.UserRepository,
	logger Logger,
) ReportService {
	return &reportServiceImpl{
		reports:       reports,
		history:       history,
		notifications: notifications,
		users:         users,
		logger:        logger,
		now:           time.Now,
	}
}

// CreateDraft creates a draft authored by author
func (s *reportServiceImpl) CreateDraft(ctx context.Context, author *entity.User, in CreateReportInput) (*entity.Report, error) {
	if author == nil || author.ID == "" {
		return nil, fmt.Errorf("%w: author is required", ErrInvalidReport)
	}
	if !author.Active {
		return nil, ErrInactiveUser
	}

	deptID := strings.TrimSpace(in.DepartmentID)
	if deptID == "" {
		deptID = author.DepartmentID
	}
	if deptID == "" {
		return nil, fmt.Errorf("%w: department is required", ErrInvalidReport)
	}
	if strings.TrimSpace(string(in.Type)) == "" {
		return nil, fmt.Errorf("%w: report type is required", ErrInvalidReport)
	}

	now := s.now()
	report := &entity.Report{
		ID:             uuid.NewString(),
		DepartmentID:   deptID,
		DepartmentName: strings.TrimSpace(in.DepartmentName),
		AuthorID:       author.ID,
		Type:           in.Type,
		Status:         workflow.StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("Failed to create draft", "author_id", author.ID, "error", err)
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.logger.Info("Draft created",
		"report_id", report.ID,
		"author_id", author.ID,
		"type", report.Type,
	)
	return report, nil
}

// Get returns a report by id
func (s *reportServiceImpl) Get(ctx context.Context, id string) (*entity.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// Permissions returns what actor may do with report right now
func (s *reportServiceImpl) Permissions(report *entity.Report, actor workflow.Actor) workflow.Permission {
	return workflow.Resolve(actor, report.AuthorID, report.Status)
}

// History returns the audit trail of a report
func (s *reportServiceImpl) History(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error) {
	return s.history.List(ctx, reportID)
}

// Notifications returns the newest notifications of a user
func (s *reportServiceImpl) Notifications(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// ResolveActor looks up an active user
func (s *reportServiceImpl) ResolveActor(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve actor: %w", err)
	}
	if !user.Active {
		return nil, ErrInactiveUser
	}
	return user, nil
}
