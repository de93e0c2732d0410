package entity

import (
	"time"

	"github.com/garyjia/report-approval/internal/domain/workflow"
)

// ReportType identifies the kind of report
type ReportType string

var defaultTypeLabels = map[ReportType]string{
	ReportTypeWeekly:    "weekly",
	ReportTypeMeeting:   "meeting",
	ReportTypeEducation: "education",
	ReportTypeCell:      "cell",
}

// Label returns the short display label; unknown types pass through unchanged
func (t ReportType) Label() string {
	if label, ok := defaultTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

// IsCellBound reports whether reports of this type record member attendance
func (t ReportType) IsCellBound() bool {
	return t == ReportTypeCell
}

// Report is a departmental report moving through the approval lifecycle
type Report struct {
	ID             string          `json:"id"`
	DepartmentID   string          `json:"department_id"`
	DepartmentName string          `json:"department_name"`
	AuthorID       string          `json:"author_id"`
	Type           ReportType      `json:"type"`
	Status         workflow.Status `json:"status"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`

	CoordinatorID         string     `json:"coordinator_id,omitempty"`
	CoordinatorReviewedAt *time.Time `json:"coordinator_reviewed_at,omitempty"`
	CoordinatorComment    string     `json:"coordinator_comment,omitempty"`

	ManagerID         string     `json:"manager_id,omitempty"`
	ManagerApprovedAt *time.Time `json:"manager_approved_at,omitempty"`
	ManagerComment    string     `json:"manager_comment,omitempty"`

	FinalApproverID string     `json:"final_approver_id,omitempty"`
	FinalApprovedAt *time.Time `json:"final_approved_at,omitempty"`
	FinalComment    string     `json:"final_comment,omitempty"`

	RejectedBy      string     `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportLink returns the in-app link to a report id
func ReportLink(id string) string {
	return ReportLinkPrefix + id
}

// Link returns the in-app link to the report
func (r *Report) Link() string {
	return ReportLink(r.ID)
}

// Clone returns a copy of the report
func (r *Report) Clone() *Report {
	c := *r
	return &c
}

// Apply writes transition changes onto the report in memory
func (r *Report) Apply(c *workflow.Changes) {
	r.Status = c.To
	r.UpdatedAt = c.At

	for _, stage := range c.Clear {
		r.setStamp(stage, nil)
	}
	if c.Stamp != nil {
		r.setStamp(c.Stage, c.Stamp)
	}

	if c.ClearRejection {
		r.RejectedBy, r.RejectedAt, r.RejectionReason = "", nil, ""
	}
	if c.Rejection != nil {
		at := c.Rejection.At
		r.RejectedBy, r.RejectedAt, r.RejectionReason = c.Rejection.By, &at, c.Rejection.Reason
	}
}

// Stamp returns the stamp recorded for stage, or nil
func (r *Report) Stamp(stage workflow.Stage) *workflow.Stamp {
	var (
		id, comment string
		at          *time.Time
	)
	switch stage {
	case workflow.StageSubmission:
		id, at = r.AuthorID, r.SubmittedAt
	case workflow.StageCoordinatorReview:
		id, at, comment = r.CoordinatorID, r.CoordinatorReviewedAt, r.CoordinatorComment
	case workflow.StageManagerApproval:
		id, at, comment = r.ManagerID, r.ManagerApprovedAt, r.ManagerComment
	case workflow.StageFinalApproval:
		id, at, comment = r.FinalApproverID, r.FinalApprovedAt, r.FinalComment
	}
	if at == nil {
		return nil
	}
	return &workflow.Stamp{ActorID: id, At: *at, Comment: comment}
}

// setStamp sets or (with nil) clears the stamp fields for a stage
func (r *Report) setStamp(stage workflow.Stage, s *workflow.Stamp) {
	var (
		id, comment string
		at          *time.Time
	)
	if s != nil {
		t := s.At
		id, at, comment = s.ActorID, &t, s.Comment
	}

	switch stage {
	case workflow.StageSubmission:
		r.SubmittedAt = at
	case workflow.StageCoordinatorReview:
		r.CoordinatorID, r.CoordinatorReviewedAt, r.CoordinatorComment = id, at, comment
	case workflow.StageManagerApproval:
		r.ManagerID, r.ManagerApprovedAt, r.ManagerComment = id, at, comment
	case workflow.StageFinalApproval:
		r.FinalApproverID, r.FinalApprovedAt, r.FinalComment = id, at, comment
	}
}
