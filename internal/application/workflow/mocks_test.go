package workflow

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/domain/entity"
	domainwf "github.com/garyjia/report-approval/internal/domain/workflow"
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

func (m *mockLogger) hasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range m.infos {
		if i == msg {
			return true
		}
	}
	return false
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := map[string]interface{}{"msg": msg}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			entry[k] = keysAndValues[i+1]
		}
	}
	m.errors = append(m.errors, entry)
}

// failedOperations returns the operation names logged as failed side effects
func (m *mockLogger) failedOperations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ops []string
	for _, e := range m.errors {
		if e["msg"] == "Side effect failed" {
			ops = append(ops, e["operation"].(string))
		}
	}
	sort.Strings(ops)
	return ops
}

type mockReportRepo struct {
	mu       sync.Mutex
	reports  map[string]*entity.Report
	applyErr error
	applied  int
}

func (m *mockReportRepo) Create(ctx context.Context, report *entity.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *mockReportRepo) ApplyChanges(ctx context.Context, id string, changes *domainwf.Changes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	r, ok := m.reports[id]
	if !ok {
		return port.ErrNotFound
	}
	r.Apply(changes)
	m.applied++
	return nil
}

func (m *mockReportRepo) appliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

type mockHistoryRepo struct {
	mu       sync.Mutex
	entries  []*entity.ApprovalHistory
	err      error
	onCreate func()
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.ApprovalHistory) error {
	if m.onCreate != nil {
		m.onCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	h.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, h)
	return nil
}

func (m *mockHistoryRepo) ListByReport(ctx context.Context, reportID string) ([]*entity.ApprovalHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.ApprovalHistory(nil), m.entries...), nil
}

type mockNotificationRepo struct {
	mu           sync.Mutex
	rows         []*entity.Notification
	err          error
	onBulkCreate func()
}

func (m *mockNotificationRepo) BulkCreate(ctx context.Context, ns []*entity.Notification) ([]int64, error) {
	if m.onBulkCreate != nil {
		m.onBulkCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]int64, len(ns))
	for i, n := range ns {
		n.ID = int64(len(m.rows) + 1)
		ids[i] = n.ID
		m.rows = append(m.rows, n)
	}
	return ids, nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	return nil, nil
}

func (m *mockNotificationRepo) MarkSent(ctx context.Context, ids []int64) error {
	return nil
}

func (m *mockNotificationRepo) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, n := range m.rows {
		ids = append(ids, n.UserID)
	}
	return ids
}

type mockUserRepo struct {
	users []*entity.User
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) ListActiveByRole(ctx context.Context, role domainwf.Role) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range m.users {
		if u.Role == role && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

type attendanceKey struct {
	member, date, kind string
}

type mockAttendanceRepo struct {
	mu       sync.Mutex
	rows     map[attendanceKey]*entity.AttendanceRecord
	err      error
	onUpsert func()
}

func (m *mockAttendanceRepo) UpsertBatch(ctx context.Context, records []*entity.AttendanceRecord) error {
	if m.onUpsert != nil {
		m.onUpsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
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
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, id := range memberIDs {
		key := attendanceKey{id, date, attendanceType}
		if r, ok := m.rows[key]; ok && r.CheckedVia == checkedVia {
			delete(m.rows, key)
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) DeleteReportElsewhere(ctx context.Context, reportID, checkedVia, date, attendanceType string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
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

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockPushSender struct {
	mu   sync.Mutex
	msgs []*entity.PushMessage
	err  error
}

func (m *mockPushSender) Send(ctx context.Context, msg *entity.PushMessage) error {
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

var errStore = errors.New("store unavailable")
