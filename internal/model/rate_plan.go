package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RatePlan bundles a credit allotment, validity period and renewal policy.
type RatePlan struct {
	ID              string          `db:"id"                               json:"id"`
	PlanName        string          `db:"plan_name"                        json:"plan_name"`
	UserType        string          `db:"user_type"                        json:"user_type"`
	MonthlyFee      decimal.Decimal `db:"monthly_fee"                      json:"monthly_fee"`
	DefaultCredits  decimal.Decimal `db:"default_credits"                  json:"default_credits"`
	ValidityDays    *int            `db:"validity_days"                    json:"validity_days"`
	RenewalRequired bool            `db:"renewal_required"                 json:"renewal_required"`
	CarryForward    bool            `db:"carry_forward_credits_on_renewal" json:"carry_forward_credits_on_renewal"`
	Status          string          `db:"status"                           json:"status"`
	CreatedAt       time.Time       `db:"created_at"                       json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"                       json:"updated_at"`
}

// Expires reports whether the plan has a positive validity window.
func (p RatePlan) Expires() bool {
	return p.ValidityDays != nil && *p.ValidityDays > 0
}

// ExpiryFrom returns start + validity_days. Only meaningful when Expires is true.
func (p RatePlan) ExpiryFrom(start time.Time) time.Time {
	if p.ValidityDays == nil {
		return start
	}
	return start.AddDate(0, 0, *p.ValidityDays)
}

// PlanAPI is the per-plan enablement and pricing of one catalog API.
type PlanAPI struct {
	ID         string          `db:"id"          json:"id"`
	PlanID     string          `db:"plan_id"     json:"plan_id"`
	APIID      string          `db:"api_id"      json:"api_id"`
	Enabled    bool            `db:"enabled"     json:"enabled"`
	CreditCost decimal.Decimal `db:"credit_cost" json:"credit_cost"`
	BuyPrice   decimal.Decimal `db:"buy_price"   json:"buy_price"`
	SellPrice  decimal.Decimal `db:"sell_price"  json:"sell_price"`
}
