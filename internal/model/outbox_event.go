package model

import "time"

const (
	TopicQueryEvents = "portal.query_events"
	TopicCredits     = "portal.credits"
)

type OutboxEvent struct {
	ID          int64     `db:"id"`
	Aggregate   string    `db:"aggregate"`    // query | officer
	AggregateID string    `db:"aggregate_id"` // query.ID / officer.ID
	Topic       string    `db:"topic"`
	Payload     []byte    `db:"payload"`
	Attempts    int       `db:"attempts"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// CreditsChanged is published whenever an officer balance moves.
type CreditsChanged struct {
	OfficerID        string    `json:"officer_id"`
	Action           string    `json:"action"`
	Credits          string    `json:"credits"`
	CreditsRemaining string    `json:"credits_remaining"`
	TotalCredits     string    `json:"total_credits"`
	At               time.Time `json:"at"`
}
