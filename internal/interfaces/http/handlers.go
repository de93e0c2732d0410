package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/report-approval/internal/application/port"
	"github.com/garyjia/report-approval/internal/application/service"
	"github.com/garyjia/report-approval/internal/application/workflow"
	"github.com/garyjia/report-approval/internal/domain/entity"
	domainwf "github.com/garyjia/report-approval/internal/domain/workflow"
)

// HeaderUserID carries the id of the acting user
const HeaderUserID = "X-User-ID"

const actorKey = "actor"

// Handlers contains all HTTP request handlers
type Handlers struct {
	reports     service.ReportService
	coordinator workflow.Coordinator
	health      HealthChecker
	logger      Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	reports service.ReportService,
	coordinator workflow.Coordinator,
	health HealthChecker,
	logger Logger,
) *Handlers {
	return &Handlers{
		reports:     reports,
		coordinator: coordinator,
		health:      health,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Components interface{} `json:"components,omitempty"`
}

// CreateReportRequest is the body of POST /api/reports
type CreateReportRequest struct {
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	Type           string `json:"type" binding:"required"`
}

// ActionRequest is the body of POST /api/reports/:id/actions
type ActionRequest struct {
	Action     string                  `json:"action" binding:"required"`
	Comment    string                  `json:"comment"`
	Attendance *entity.AttendanceSheet `json:"attendance,omitempty"`
}

// PermissionResponse lists what the caller may do with a report
type PermissionResponse struct {
	ReportID string   `json:"report_id"`
	Status   string   `json:"status"`
	Actions  []string `json:"actions"`
}

// SideEffectResponse is one post-transition operation outcome
type SideEffectResponse struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped"`
	Error   string `json:"error,omitempty"`
}

// NotificationSummary describes the notifications a transition produced
type NotificationSummary struct {
	Recipients      []string `json:"recipients"`
	NotificationIDs []int64  `json:"notification_ids"`
	PushQueued      bool     `json:"push_queued"`
}

// AttendanceSummary describes a reconcile outcome
type AttendanceSummary struct {
	Present []string `json:"present"`
	Absent  []string `json:"absent"`
	Deleted int64    `json:"deleted"`
}

// StageView is one sign-off stamp on a report
type StageView struct {
	Stage   string    `json:"stage"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
	Comment string    `json:"comment,omitempty"`
}

// ReportView is a report with its link, pending flag and stamped stages
type ReportView struct {
	*entity.Report
	Link    string      `json:"link"`
	Pending bool        `json:"pending"`
	Stages  []StageView `json:"stages"`
}

// ActionResponse is returned for an applied transition
type ActionResponse struct {
	Report        *ReportView             `json:"report"`
	History       *entity.ApprovalHistory `json:"history,omitempty"`
	Notifications *NotificationSummary    `json:"notifications,omitempty"`
	Attendance    *AttendanceSummary      `json:"attendance,omitempty"`
	SideEffects   []SideEffectResponse    `json:"side_effects"`
	Degraded      bool                    `json:"degraded"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, Response{
				Success: false,
				Data:    response,
				Error:   "service unhealthy",
			})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// RequireActor resolves the acting user from the X-User-ID header
func (h *Handlers) RequireActor(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing " + HeaderUserID + " header",
		})
		return
	}

	user, err := h.reports.ResolveActor(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, port.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "unknown user",
			})
		case errors.Is(err, service.ErrInactiveUser):
			c.AbortWithStatusJSON(http.StatusForbidden, Response{
				Success: false,
				Error:   err.Error(),
			})
		default:
			h.logger.Error("Failed to resolve actor", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "failed to resolve user",
			})
		}
		return
	}

	c.Set(actorKey, user)
	c.Next()
}

func currentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(actorKey)
	if !ok {
		return nil
	}
	user, _ := v.(*entity.User)
	return user
}

// CreateReport handles POST /api/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user := currentUser(c)
	report, err := h.reports.CreateDraft(c.Request.Context(), user, service.CreateReportInput{
		DepartmentID:   req.DepartmentID,
		DepartmentName: req.DepartmentName,
		Type:           entity.ReportType(req.Type),
	})
	if err != nil {
		h.fail(c, "Failed to create report", err, "user_id", user.ID)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    report,
	})
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id := c.Param("id")

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get report", err, "report_id", id)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toReportView(report),
	})
}

// GetPermissions handles GET /api/reports/:id/permissions
func (h *Handlers) GetPermissions(c *gin.Context) {
	id := c.Param("id")

	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get report", err, "report_id", id)
		return
	}

	perm := h.reports.Permissions(report, currentUser(c).Actor())
	actions := make([]string, 0, len(perm.Actions()))
	for _, a := range perm.Actions() {
		actions = append(actions, a.String())
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: PermissionResponse{
			ReportID: report.ID,
			Status:   report.Status.String(),
			Actions:  actions,
		},
	})
}

// ExecuteAction handles POST /api/reports/:id/actions
func (h *Handlers) ExecuteAction(c *gin.Context) {
	id := c.Param("id")

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	action, err := domainwf.ParseAction(req.Action)
	if err != nil {
		h.fail(c, "Invalid action", err, "report_id", id)
		return
	}

	user := currentUser(c)
	result, err := h.coordinator.ExecuteByID(c.Request.Context(), id, workflow.Request{
		Action:     action,
		Actor:      user.Actor(),
		Comment:    req.Comment,
		Attendance: req.Attendance,
	})
	if err != nil {
		h.fail(c, "Failed to execute action", err, "report_id", id, "action", req.Action, "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toActionResponse(result),
	})
}

// EditAttendance handles PUT /api/reports/:id/attendance
func (h *Handlers) EditAttendance(c *gin.Context) {
	id := c.Param("id")

	var sheet entity.AttendanceSheet
	if err := c.ShouldBindJSON(&sheet); err != nil {
		h.badRequest(c, err)
		return
	}

	user := currentUser(c)
	outcome, err := h.coordinator.EditAttendance(c.Request.Context(), id, user.Actor(), &sheet)
	if err != nil {
		h.fail(c, "Failed to edit attendance", err, "report_id", id, "user_id", user.ID)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toAttendanceSummary(outcome),
	})
}

// GetHistory handles GET /api/reports/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id := c.Param("id")

	if _, err := h.reports.Get(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to get report", err, "report_id", id)
		return
	}

	entries, err := h.reports.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list history", err, "report_id", id)
		return
	}
	if entries == nil {
		entries = []*entity.ApprovalHistory{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "invalid limit",
			})
			return
		}
		limit = n
	}
	if limit > 200 {
		limit = 200
	}

	user := currentUser(c)
	list, err := h.reports.Notifications(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.fail(c, "Failed to list notifications", err, "user_id", user.ID)
		return
	}
	if list == nil {
		list = []*entity.Notification{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    list,
	})
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   "invalid request body",
	})
}

// fail writes the error response for err; only unexpected errors are logged at error level
func (h *Handlers) fail(c *gin.Context, msg string, err error, keysAndValues ...interface{}) {
	status := statusFor(err)
	text := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(keysAndValues, "error", err)...)
		text = "internal error"
	} else {
		h.logger.Info(msg, append(keysAndValues, "status", status, "error", err.Error())...)
	}

	c.JSON(status, Response{
		Success: false,
		Error:   text,
	})
}

// statusFor maps application errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainwf.ErrNotPermitted), errors.Is(err, service.ErrInactiveUser):
		return http.StatusForbidden
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case domainwf.IsValidationError(err),
		errors.Is(err, service.ErrInvalidAttendance),
		errors.Is(err, service.ErrInvalidReport),
		errors.Is(err, workflow.ErrNotCellBound):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func toReportView(r *entity.Report) *ReportView {
	if r == nil {
		return nil
	}
	view := &ReportView{
		Report:  r,
		Link:    r.Link(),
		Pending: r.Status.IsPending(),
		Stages:  make([]StageView, 0, 4),
	}
	for _, stage := range domainwf.Stages() {
		if stamp := r.Stamp(stage); stamp != nil {
			view.Stages = append(view.Stages, StageView{
				Stage:   stage.String(),
				ActorID: stamp.ActorID,
				At:      stamp.At,
				Comment: stamp.Comment,
			})
		}
	}
	return view
}

func toActionResponse(r *workflow.Result) ActionResponse {
	resp := ActionResponse{
		Report:      toReportView(r.Report),
		History:     r.History,
		Attendance:  toAttendanceSummary(r.Attendance),
		SideEffects: make([]SideEffectResponse, 0, len(r.SideEffects)),
		Degraded:    len(r.Degraded()) > 0,
	}

	if n := r.Notifications; n != nil && !n.Skipped {
		resp.Notifications = &NotificationSummary{
			Recipients:      n.Recipients,
			NotificationIDs: n.NotificationIDs,
			PushQueued:      n.Push != nil,
		}
	}

	for _, s := range r.SideEffects {
		item := SideEffectResponse{Name: s.Name, OK: s.OK(), Skipped: s.Skipped}
		if s.Err != nil {
			item.Error = s.Err.Error()
		}
		resp.SideEffects = append(resp.SideEffects, item)
	}
	return resp
}

func toAttendanceSummary(o *service.SyncOutcome) *AttendanceSummary {
	if o == nil {
		return nil
	}
	return &AttendanceSummary{
		Present: o.Present,
		Absent:  o.Absent,
		Deleted: o.Deleted,
	}
}
