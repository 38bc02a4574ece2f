package model

import "time"

type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
)

// Notification targets one officer, or the admin console when OfficerID is nil.
type Notification struct {
	ID        string           `db:"id"         json:"id"`
	OfficerID *string          `db:"officer_id" json:"officer_id,omitempty"`
	Type      NotificationType `db:"type"       json:"type"`
	Title     string           `db:"title"      json:"title"`
	Message   string           `db:"message"    json:"message"`
	Link      *string          `db:"link"       json:"link,omitempty"`
	Read      bool             `db:"is_read"    json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"timestamp"`
}
