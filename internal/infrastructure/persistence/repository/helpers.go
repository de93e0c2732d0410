package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/garyjia/report-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// maxBindVariables is SQLite's per-statement host parameter limit
var maxBindVariables = 32766

// rowsPerStatement returns how many rows of columns values fit in one INSERT
func rowsPerStatement(columns int) int {
	n := maxBindVariables / columns
	if n < 1 {
		return 1
	}
	return n
}

// inChunks calls fn for consecutive [start, end) windows of size rows.
// More than one window runs inside a single transaction.
func inChunks(ctx context.Context, db *sql.DB, logger *zap.Logger, total, size int, fn func(ctx context.Context, start, end int) error) error {
	if total <= size {
		return fn(ctx, 0, total)
	}
	return sqlite.NewDB(db, logger).WithTransaction(ctx, func(ctx context.Context) error {
		for start := 0; start < total; start += size {
			end := start + size
			if end > total {
				end = total
			}
			if err := fn(ctx, start, end); err != nil {
				return err
			}
		}
		return nil
	})
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
