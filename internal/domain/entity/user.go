package entity

import (
	"time"

	"github.com/garyjia/report-approval/internal/domain/workflow"
)

// User is a console user as seen by the workflow engine
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	DepartmentID string        `json:"department_id"`
	Role         workflow.Role `json:"role"`
	Active       bool          `json:"active"`
	LarkOpenID   string        `json:"lark_open_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Actor returns the workflow identity of the user
func (u *User) Actor() workflow.Actor {
	return workflow.Actor{ID: u.ID, Role: u.Role}
}
