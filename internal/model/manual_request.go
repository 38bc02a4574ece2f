package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InputType string

const (
	InputMobile  InputType = "Mobile"
	InputEmail   InputType = "Email"
	InputPAN     InputType = "PAN"
	InputName    InputType = "Name"
	InputAddress InputType = "Address"
	InputOther   InputType = "Other"
)

// ParseInputType matches case-insensitively and returns the canonical form.
func ParseInputType(s string) (InputType, bool) {
	for _, t := range []InputType{InputMobile, InputEmail, InputPAN, InputName, InputAddress, InputOther} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, true
		}
	}
	return "", false
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

func (s ReviewStatus) Valid() bool {
	return s == ReviewPending || s == ReviewApproved || s == ReviewRejected
}

// ManualRequest is a free-text data request that an admin fulfils by hand.
type ManualRequest struct {
	ID             string          `db:"id"              json:"id"`
	OfficerID      string          `db:"officer_id"      json:"officer_id"`
	InputType      InputType       `db:"input_type"      json:"input_type"`
	InputValue     string          `db:"input_value"     json:"input_value"`
	Notes          *string         `db:"notes"           json:"notes,omitempty"`
	Status         ReviewStatus    `db:"status"          json:"status"`
	AdminResponse  *string         `db:"admin_response"  json:"admin_response,omitempty"`
	CreditDeducted decimal.Decimal `db:"credit_deducted" json:"credit_deducted"`
	ApprovedBy     *string         `db:"approved_by"     json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `db:"approved_at"     json:"approved_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at"      json:"created_at"`

	// joined from officers on list queries
	OfficerName   *string `db:"officer_name"   json:"officer_name,omitempty"`
	OfficerEmail  *string `db:"officer_email"  json:"officer_email,omitempty"`
	OfficerMobile *string `db:"officer_mobile" json:"officer_mobile,omitempty"`
}
