package model

import "time"

// OfficerRegistration is a self-service signup waiting for admin review.
type OfficerRegistration struct {
	ID              string       `db:"id"               json:"id"`
	Name            string       `db:"name"             json:"name"`
	Mobile          string       `db:"mobile"           json:"mobile"`
	Email           string       `db:"email"            json:"email"`
	Station         *string      `db:"station"          json:"station,omitempty"`
	Department      *string      `db:"department"       json:"department,omitempty"`
	Rank            *string      `db:"rank"             json:"rank,omitempty"`
	BadgeNumber     *string      `db:"badge_number"     json:"badge_number,omitempty"`
	AdditionalInfo  *string      `db:"additional_info"  json:"additional_info,omitempty"`
	Status          ReviewStatus `db:"status"           json:"status"`
	ReviewedBy      *string      `db:"reviewed_by"      json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time   `db:"reviewed_at"      json:"reviewed_at,omitempty"`
	RejectionReason *string      `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time    `db:"created_at"       json:"created_at"`
}
