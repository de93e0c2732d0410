package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	"github.com/garyjia/report-approval/internal/domain/workflow"
)

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []map[string]interface{}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := map[string]interface{}{"msg": msg}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		entry[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	m.errors = append(m.errors, entry)
}

func (m *mockLogger) HasError(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.errors {
		if e["msg"] == msg {
			return true
		}
	}
	return false
}

type mockUserRepo struct {
	users   []*entity.User
	listErr error
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	m.users = append(m.users, user)
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) ListActiveByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*entity.User
	for _, u := range m.users {
		if u.Role == role && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockNotificationRepo struct {
	mu        sync.Mutex
	rows      []*entity.Notification
	bulkErr   error
	bulkCalls int
	sentIDs   []int64
	markErr   error
}

func (m *mockNotificationRepo) BulkCreate(ctx context.Context, notifications []*entity.Notification) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	ids := make([]int64, len(notifications))
	for i, n := range notifications {
		n.ID = int64(len(m.rows) + 1)
		ids[i] = n.ID
		m.rows = append(m.rows, n)
	}
	return ids, nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Notification
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.sentIDs = append(m.sentIDs, ids...)
	for _, n := range m.rows {
		for _, id := range ids {
			if n.ID == id {
				n.IsSent = true
			}
		}
	}
	return nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type mockHistoryRepo struct {
	mu        sync.Mutex
	entries   []*entity.ApprovalHistory
	createErr error
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	history.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, history)
	return nil
}

func (m *mockHistoryRepo) ListByReport(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.ApprovalHistory
	for _, e := range m.entries {
		if e.ReportID == reportID {
			out = append(out, e)
		}
	}
	return out, nil
}

type attendanceKey struct {
	member, date, kind string
}

// mockAttendanceRepo keeps rows in memory with the same conflict rules as the sqlite store
type mockAttendanceRepo struct {
	mu        sync.Mutex
	rows      map[attendanceKey]*entity.AttendanceRecord
	upsertErr error
	deleteErr error
	calls     []string
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{rows: make(map[attendanceKey]*entity.AttendanceRecord)}
}

func (m *mockAttendanceRepo) UpsertBatch(ctx context.Context, records []*entity.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "upsert")
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, r := range records {
		key := attendanceKey{r.MemberID, r.AttendanceDate, r.AttendanceType}
		if existing, ok := m.rows[key]; ok && existing.CheckedVia != r.CheckedVia {
			continue
		}
		c := *r
		m.rows[key] = &c
	}
	return nil
}

func (m *mockAttendanceRepo) DeleteOwned(ctx context.Context, date, attendanceType, checkedVia string, memberIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete")
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for _, id := range memberIDs {
		key := attendanceKey{id, date, attendanceType}
		if existing, ok := m.rows[key]; ok && existing.CheckedVia == checkedVia {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) DeleteReportElsewhere(ctx context.Context, reportID, checkedVia, date, attendanceType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete_stale")
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	var n int64
	for k, r := range m.rows {
		if r.ReportID == reportID && r.CheckedVia == checkedVia && (k.date != date || k.kind != attendanceType) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) ListByDate(ctx context.Context, date, attendanceType string) ([]*entity.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AttendanceRecord
	for k, r := range m.rows {
		if k.date == date && k.kind == attendanceType {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out, nil
}

func (m *mockAttendanceRepo) seed(r *entity.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[attendanceKey{r.MemberID, r.AttendanceDate, r.AttendanceType}] = r
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type mockPushSender struct {
	mu    sync.Mutex
	msgs  []*entity.PushMessage
	err   error
	block chan struct{}
}

func (m *mockPushSender) Send(ctx context.Context, msg *entity.PushMessage) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

func (m *mockPushSender) sent() []*entity.PushMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.PushMessage(nil), m.msgs...)
}

type mockReportRepo struct {
	mu        sync.Mutex
	reports   map[string]*entity.Report
	createErr error
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{reports: make(map[string]*entity.Report)}
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.reports[report.ID] = report.Clone()
	return nil
}

func (m *mockReportRepo) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	return r.Clone(), nil
}

func (m *mockReportRepo) ApplyChanges(ctx context.Context, id string, changes *workflow.Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return port.ErrNotFound
	}
	r.Apply(changes)
	return nil
}
