package entity

import "time"

// Notification is an in-app notification owned by its recipient
type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ReportID  string    `json:"report_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	IsSent    bool      `json:"is_sent"`
	CreatedAt time.Time `json:"created_at"`
}

// PushMessage is the payload handed to the push-delivery endpoint
type PushMessage struct {
	UserIDs []string `json:"userIds"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Link    string   `json:"link,omitempty"`
}
