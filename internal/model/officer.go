package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfficerStatus string

const (
	OfficerActive    OfficerStatus = "Active"
	OfficerSuspended OfficerStatus = "Suspended"
)

func (s OfficerStatus) String() string { return string(s) }

func (s OfficerStatus) Valid() bool {
	return s == OfficerActive || s == OfficerSuspended
}

// Officer is a field user consuming metered lookup credits.
type Officer struct {
	ID               string          `db:"id"                json:"id"`
	Name             string          `db:"name"              json:"name"`
	Mobile           string          `db:"mobile"            json:"mobile"`
	Email            string          `db:"email"             json:"email"`
	PasswordHash     string          `db:"password_hash"     json:"-"`
	TelegramID       *string         `db:"telegram_id"       json:"telegram_id,omitempty"`
	Department       *string         `db:"department"        json:"department,omitempty"`
	Rank             *string         `db:"rank"              json:"rank,omitempty"`
	BadgeNumber      *string         `db:"badge_number"      json:"badge_number,omitempty"`
	Status           OfficerStatus   `db:"status"            json:"status"`
	CreditsRemaining decimal.Decimal `db:"credits_remaining" json:"credits_remaining"`
	TotalCredits     decimal.Decimal `db:"total_credits"     json:"total_credits"`
	PlanID           *string         `db:"plan_id"           json:"plan_id,omitempty"`
	PlanStartDate    *time.Time      `db:"plan_start_date"   json:"plan_start_date,omitempty"`
	TotalQueries     int64           `db:"total_queries"     json:"total_queries"`
	RegisteredOn     time.Time       `db:"registered_on"     json:"registered_on"`
	LastActive       *time.Time      `db:"last_active"       json:"last_active,omitempty"`
	CreatedAt        time.Time       `db:"created_at"        json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"        json:"updated_at"`
}

// PlanAnchor is the date a plan cycle is measured from.
func (o Officer) PlanAnchor() time.Time {
	if o.PlanStartDate != nil {
		return *o.PlanStartDate
	}
	return o.RegisteredOn
}

// OfficerWithPlan is an officer joined with the plan fields the expiry job reads.
type OfficerWithPlan struct {
	ID                 string              `db:"id"`
	Name               string              `db:"name"`
	CreditsRemaining   decimal.Decimal     `db:"credits_remaining"`
	TotalCredits       decimal.Decimal     `db:"total_credits"`
	PlanStartDate      *time.Time          `db:"plan_start_date"`
	ValidityDays       *int                `db:"validity_days"`
	CarryForward       bool                `db:"carry_forward_credits_on_renewal"`
	PlanDefaultCredits decimal.NullDecimal `db:"default_credits"`
}
