package model

import "time"

// QueryEvent is the payload published to Kafka (via Debezium outbox SMT)
// for every recorded lookup, and the row shape of ClickHouse query_events.
type QueryEvent struct {
	ID          string    `json:"id"           db:"id"`
	OfficerID   string    `json:"officer_id"   db:"officer_id"`
	OfficerName string    `json:"officer_name" db:"officer_name"`
	Category    string    `json:"category"     db:"category"`
	Source      string    `json:"source"       db:"source"`
	Status      string    `json:"status"       db:"status"`
	CreditsUsed float64   `json:"credits_used" db:"credits_used"`
	LatencyMs   int64     `json:"latency_ms"   db:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// CategoryUsage is one row of the per-category analytics report.
type CategoryUsage struct {
	Category     string  `db:"category"       json:"category"`
	Total        uint64  `db:"total"          json:"total"`
	Successful   uint64  `db:"successful"     json:"successful"`
	CreditsUsed  float64 `db:"credits_used"   json:"credits_used"`
	AvgLatencyMs float64 `db:"avg_latency_ms" json:"avg_latency_ms"`
}
