package model

import "github.com/shopspring/decimal"

type DashboardStats struct {
	TotalOfficers       int64           `json:"total_officers"`
	ActiveOfficers      int64           `json:"active_officers"`
	TotalQueriesToday   int64           `json:"total_queries_today"`
	SuccessfulQueries   int64           `json:"successful_queries"`
	FailedQueries       int64           `json:"failed_queries"`
	TotalCreditsUsed    decimal.Decimal `json:"total_credits_used"`
	RevenueToday        decimal.Decimal `json:"revenue_today"`
	AverageResponseTime float64         `json:"average_response_time"`
}
