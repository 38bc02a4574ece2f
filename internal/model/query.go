package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type QueryType string

const (
	QueryOSINT QueryType = "OSINT"
	QueryPRO   QueryType = "PRO"
)

type QueryStatus string

const (
	QuerySuccess QueryStatus = "Success"
	QueryFailed  QueryStatus = "Failed"
	QueryPending QueryStatus = "Pending"
)

func (s QueryStatus) Valid() bool {
	return s == QuerySuccess || s == QueryFailed || s == QueryPending
}

// Query is one lookup in an officer's history.
type Query struct {
	ID            string          `db:"id"             json:"id"`
	OfficerID     string          `db:"officer_id"     json:"officer_id"`
	OfficerName   string          `db:"officer_name"   json:"officer_name"`
	Type          QueryType       `db:"type"           json:"type"`
	Category      string          `db:"category"       json:"category"`
	InputData     string          `db:"input_data"     json:"input_data"`
	Source        string          `db:"source"         json:"source"`
	ResultSummary string          `db:"result_summary" json:"result_summary"`
	FullResult    RawJSON         `db:"full_result"    json:"full_result"`
	CreditsUsed   decimal.Decimal `db:"credits_used"   json:"credits_used"`
	Status        QueryStatus     `db:"status"         json:"status"`
	CreatedAt     time.Time       `db:"created_at"     json:"created_at"`
}

// QueryFilter narrows history listings. Empty fields match everything.
type QueryFilter struct {
	OfficerID string
	Category  string
	Status    QueryStatus
	Limit     int
	Offset    int
}
