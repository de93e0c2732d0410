package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
)

// ErrInvalidAttendance is returned for a reconcile request that cannot be applied
var ErrInvalidAttendance = errors.New("invalid attendance request")

// ReconcileRequest carries one attendance sheet to reconcile
type ReconcileRequest struct {
	ReportID           string
	Date               string
	AttendanceType     string
	PresentMemberIDs   []string
	CandidateMemberIDs []string
	CheckedVia         string
	ActorID            string
}

// SyncOutcome reports what a reconcile call changed
type SyncOutcome struct {
	Present []string
	Absent  []string
	Deleted int64
}

// AttendanceSynchronizer reconciles a report's attendance sheet against stored rows
type AttendanceSynchronizer struct {
	repo      port.AttendanceRepository
	txManager port.TransactionManager
	logger    Logger
}

// NewAttendanceSynchronizer creates a new AttendanceSynchronizer
func NewAttendanceSynchronizer(repo port.AttendanceRepository, txManager port.TransactionManager, logger Logger) *AttendanceSynchronizer {
	return &AttendanceSynchronizer{
		repo:      repo,
		txManager: txManager,
		logger:    logger,
	}
}

// Reconcile makes the rows owned by req.CheckedVia match the present set exactly.
// Rows the report wrote for another date or type are removed first.
// Rows written through another channel are never modified or deleted.
func (s *AttendanceSynchronizer) Reconcile(ctx context.Context, req ReconcileRequest) (*SyncOutcome, error) {
	if err := ValidateReconcile(req); err != nil {
		return nil, err
	}

	present, absent := partition(req.CandidateMemberIDs, req.PresentMemberIDs)
	outcome := &SyncOutcome{Present: present, Absent: absent}

	records := make([]*entity.AttendanceRecord, 0, len(present))
	for _, memberID := range present {
		records = append(records, &entity.AttendanceRecord{
			MemberID:       memberID,
			ReportID:       req.ReportID,
			AttendanceDate: req.Date,
			AttendanceType: req.AttendanceType,
			IsPresent:      true,
			CheckedBy:      req.ActorID,
			CheckedVia:     req.CheckedVia,
		})
	}

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		stale, err := s.repo.DeleteReportElsewhere(ctx, req.ReportID, req.CheckedVia, req.Date, req.AttendanceType)
		if err != nil {
			return fmt.Errorf("delete stale: %w", err)
		}

		deleted, err := s.repo.DeleteOwned(ctx, req.Date, req.AttendanceType, req.CheckedVia, absent)
		if err != nil {
			return fmt.Errorf("delete absent: %w", err)
		}
		outcome.Deleted = stale + deleted

		if err := s.repo.UpsertBatch(ctx, records); err != nil {
			return fmt.Errorf("upsert present: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Attendance reconcile failed",
			"report_id", req.ReportID,
			"date", req.Date,
			"type", req.AttendanceType,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Attendance reconciled",
		"report_id", req.ReportID,
		"date", req.Date,
		"present", len(present),
		"absent", len(absent),
		"deleted", outcome.Deleted,
	)
	return outcome, nil
}

// ValidateReconcile checks a request before anything is written
func ValidateReconcile(req ReconcileRequest) error {
	if _, err := time.Parse(entity.AttendanceDateLayout, req.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidAttendance, req.Date)
	}
	if req.AttendanceType == "" {
		return fmt.Errorf("%w: attendance type is required", ErrInvalidAttendance)
	}
	if req.CheckedVia == "" {
		return fmt.Errorf("%w: provenance is required", ErrInvalidAttendance)
	}
	if req.ActorID == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidAttendance)
	}
	return nil
}

// partition splits candidates into present and absent, dropping duplicates.
// Present ids that are not candidates are ignored.
func partition(candidates, presentIDs []string) (present, absent []string) {
	isPresent := make(map[string]bool, len(presentIDs))
	for _, id := range presentIDs {
		isPresent[id] = true
	}

	seen := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if isPresent[id] {
			present = append(present, id)
		} else {
			absent = append(absent, id)
		}
	}
	return present, absent
}
