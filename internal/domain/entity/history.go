package entity

import (
	"time"

	"github.com/garyjia/report-approval/internal/domain/workflow"
)

// ApprovalHistory is the immutable audit entry written for every accepted transition
type ApprovalHistory struct {
	ID         int64           `json:"id"`
	ReportID   string          `json:"report_id"`
	ApproverID string          `json:"approver_id"`
	FromStatus workflow.Status `json:"from_status"`
	ToStatus   workflow.Status `json:"to_status"`
	Action     workflow.Action `json:"action"`
	Comment    string          `json:"comment"`
	CreatedAt  time.Time       `json:"created_at"`
}
