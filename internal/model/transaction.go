package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionDeduction  Action = "Deduction"
	ActionTopUp      Action = "Top-up"
	ActionRenewal    Action = "Renewal"
	ActionRefund     Action = "Refund"
	ActionAdjustment Action = "Adjustment"
)

func (a Action) String() string { return string(a) }

// GrowsTotal reports whether the action also raises total_credits.
func (a Action) GrowsTotal() bool {
	return a == ActionRenewal || a == ActionTopUp
}

// ParseAction accepts the canonical names case-insensitively ("topup" too).
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deduction":
		return ActionDeduction, true
	case "top-up", "topup":
		return ActionTopUp, true
	case "renewal":
		return ActionRenewal, true
	case "refund":
		return ActionRefund, true
	case "adjustment":
		return ActionAdjustment, true
	default:
		return "", false
	}
}

const (
	PaymentQueryUsage    = "Query Usage"
	PaymentManualRequest = "Manual Request"
	PaymentManualRenewal = "Manual Renewal"
)

// CreditTransaction is one ledger row. Credits is stored as a positive amount;
// the direction comes from Action.
type CreditTransaction struct {
	ID             string          `db:"id"              json:"id"`
	OfficerID      string          `db:"officer_id"      json:"officer_id"`
	OfficerName    string          `db:"officer_name"    json:"officer_name"`
	Action         Action          `db:"action"          json:"action"`
	Credits        decimal.Decimal `db:"credits"         json:"credits"`
	PaymentMode    string          `db:"payment_mode"    json:"payment_mode"`
	Remarks        string          `db:"remarks"         json:"remarks"`
	IdempotencyKey *string         `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time       `db:"created_at"      json:"created_at"`
}
