package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AttendanceRepository implements port.AttendanceRepository
type AttendanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttendanceRepository creates a new attendance repository
func NewAttendanceRepository(db *sql.DB, logger *zap.Logger) port.AttendanceRepository {
	return &AttendanceRepository{
		db:     db,
		logger: logger,
	}
}

const attendanceColumns = 9

// UpsertBatch writes records keyed on (member_id, attendance_date, attendance_type).
// A conflicting row is only updated when it carries the same checked_via.
// Batches past the bind-variable limit are split and written in one transaction.
func (r *AttendanceRepository) UpsertBatch(ctx context.Context, records []*entity.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}

	return inChunks(ctx, r.db, r.logger, len(records), rowsPerStatement(attendanceColumns),
		func(ctx context.Context, start, end int) error {
			return r.upsertChunk(ctx, records[start:end])
		})
}

func (r *AttendanceRepository) upsertChunk(ctx context.Context, records []*entity.AttendanceRecord) error {
	now := time.Now()
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*attendanceColumns)
	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		values = append(values, "("+placeholders(attendanceColumns)+")")
		args = append(args,
			rec.MemberID,
			nullString(rec.ReportID),
			rec.AttendanceDate,
			rec.AttendanceType,
			rec.IsPresent,
			rec.CheckedBy,
			rec.CheckedVia,
			rec.CreatedAt,
			rec.UpdatedAt,
		)
	}

	query := `
		INSERT INTO attendance_records (
			member_id, report_id, attendance_date, attendance_type,
			is_present, checked_by, checked_via, created_at, updated_at
		) VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT(member_id, attendance_date, attendance_type) DO UPDATE SET
			report_id = excluded.report_id,
			is_present = excluded.is_present,
			checked_by = excluded.checked_by,
			updated_at = excluded.updated_at
		WHERE attendance_records.checked_via = excluded.checked_via
	`

	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to upsert attendance",
			zap.Int("count", len(records)),
			zap.Error(err))
		return fmt.Errorf("failed to upsert attendance: %w", err)
	}

	return nil
}

// DeleteOwned removes rows of memberIDs for one date and type, limited to checkedVia provenance
func (r *AttendanceRepository) DeleteOwned(ctx context.Context, date, attendanceType, checkedVia string, memberIDs []string) (int64, error) {
	if len(memberIDs) == 0 {
		return 0, nil
	}

	var deleted int64
	err := inChunks(ctx, r.db, r.logger, len(memberIDs), rowsPerStatement(1)-3,
		func(ctx context.Context, start, end int) error {
			n, err := r.deleteChunk(ctx, date, attendanceType, checkedVia, memberIDs[start:end])
			deleted += n
			return err
		})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *AttendanceRepository) deleteChunk(ctx context.Context, date, attendanceType, checkedVia string, memberIDs []string) (int64, error) {
	args := make([]interface{}, 0, len(memberIDs)+3)
	args = append(args, date, attendanceType, checkedVia)
	for _, id := range memberIDs {
		args = append(args, id)
	}

	query := `
		DELETE FROM attendance_records
		WHERE attendance_date = ? AND attendance_type = ? AND checked_via = ?
			AND member_id IN (` + placeholders(len(memberIDs)) + `)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete attendance",
			zap.String("date", date),
			zap.String("type", attendanceType),
			zap.Error(err))
		return 0, fmt.Errorf("failed to delete attendance: %w", err)
	}

	return result.RowsAffected()
}

// DeleteReportElsewhere removes rows a report wrote for a date or type it no longer covers
func (r *AttendanceRepository) DeleteReportElsewhere(ctx context.Context, reportID, checkedVia, date, attendanceType string) (int64, error) {
	if reportID == "" {
		return 0, nil
	}

	query := `
		DELETE FROM attendance_records
		WHERE report_id = ? AND checked_via = ?
			AND NOT (attendance_date = ? AND attendance_type = ?)
	`

	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, reportID, checkedVia, date, attendanceType)
	if err != nil {
		r.logger.Error("Failed to delete stale attendance",
			zap.String("report_id", reportID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to delete stale attendance: %w", err)
	}

	return result.RowsAffected()
}

// ListByDate returns every row for a date and type, ordered by member
func (r *AttendanceRepository) ListByDate(ctx context.Context, date, attendanceType string) ([]*entity.AttendanceRecord, error) {
	query := `
		SELECT id, member_id, report_id, attendance_date, attendance_type,
			is_present, checked_by, checked_via, created_at, updated_at
		FROM attendance_records
		WHERE attendance_date = ? AND attendance_type = ?
		ORDER BY member_id
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, date, attendanceType)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []*entity.AttendanceRecord
	for rows.Next() {
		var (
			rec      entity.AttendanceRecord
			reportID sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.MemberID,
			&reportID,
			&rec.AttendanceDate,
			&rec.AttendanceType,
			&rec.IsPresent,
			&rec.CheckedBy,
			&rec.CheckedVia,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		rec.ReportID = reportID.String
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.AttendanceRepository = (*AttendanceRepository)(nil)
