package entity

import "time"

// AttendanceRecord is one member's presence for a date and category.
// (MemberID, AttendanceDate, AttendanceType) is unique.
type AttendanceRecord struct {
	ID             int64     `json:"id"`
	MemberID       string    `json:"member_id"`
	ReportID       string    `json:"report_id"`
	AttendanceDate string    `json:"attendance_date"`
	AttendanceType string    `json:"attendance_type"`
	IsPresent      bool      `json:"is_present"`
	CheckedBy      string    `json:"checked_by"`
	CheckedVia     string    `json:"checked_via"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AttendanceSheet is the attendance section of a cell-leader report:
// the cell's members and which of them were present.
type AttendanceSheet struct {
	Date               string   `json:"date" binding:"required"`
	Type               string   `json:"type,omitempty"`
	PresentMemberIDs   []string `json:"present_member_ids"`
	CandidateMemberIDs []string `json:"candidate_member_ids" binding:"required"`
}
