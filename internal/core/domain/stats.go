package domain

import "time"

// AdminStats is the aggregate usage summary shown on the admin dashboard.
type AdminStats struct {
	TotalUsers    int       `json:"total_users"`
	TotalCheckins int       `json:"total_checkins"`
	FetchedAt     time.Time `json:"-"`
}

// StatsErrorType is the consumer-facing category of a stats failure.
type StatsErrorType string

const (
	StatsErrorUnauthorized StatsErrorType = "unauthorized"
	StatsErrorForbidden    StatsErrorType = "forbidden"
	StatsErrorServer       StatsErrorType = "server"
	StatsErrorNetwork      StatsErrorType = "network"
)
