package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

const notificationColumns = 8

// BulkCreate inserts every notification with multi-row INSERTs.
// Batches past the bind-variable limit are split and written in one transaction.
func (r *NotificationRepository) BulkCreate(ctx context.Context, notifications []*entity.Notification) ([]int64, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(notifications))
	err := inChunks(ctx, r.db, r.logger, len(notifications), rowsPerStatement(notificationColumns),
		func(ctx context.Context, start, end int) error {
			chunkIDs, err := r.insertChunk(ctx, notifications[start:end])
			if err != nil {
				return err
			}
			ids = append(ids, chunkIDs...)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *NotificationRepository) insertChunk(ctx context.Context, notifications []*entity.Notification) ([]int64, error) {
	now := time.Now()
	values := make([]string, 0, len(notifications))
	args := make([]interface{}, 0, len(notifications)*notificationColumns)
	for _, n := range notifications {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		values = append(values, "("+placeholders(notificationColumns)+")")
		args = append(args, n.UserID, n.ReportID, n.Title, n.Body, n.Link, n.IsRead, n.IsSent, n.CreatedAt)
	}

	query := `
		INSERT INTO notifications (
			user_id, report_id, title, body, link, is_read, is_sent, created_at
		) VALUES ` + strings.Join(values, ", ") + `
		RETURNING id
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to bulk create notifications",
			zap.Int("count", len(notifications)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to bulk create notifications: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(notifications))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notification id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to bulk create notifications: %w", err)
	}

	// RETURNING order is unspecified; rowids follow VALUES order
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i, id := range ids {
		if i < len(notifications) {
			notifications[i].ID = id
		}
	}

	return ids, nil
}

// ListByUser returns the newest notifications of a user
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, report_id, title, body, link, is_read, is_sent, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.ReportID,
			&n.Title,
			&n.Body,
			&n.Link,
			&n.IsRead,
			&n.IsSent,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// MarkSent flags the given notifications as pushed
func (r *NotificationRepository) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := "UPDATE notifications SET is_sent = 1 WHERE id IN (" + placeholders(len(ids)) + ")"
	if _, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to mark notifications sent", zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("failed to mark notifications sent: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
