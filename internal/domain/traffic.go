package domain

import "time"

// SourceSimilarweb is the provider literal stamped on every ingested row.
const SourceSimilarweb = "similarweb"

// TrafficRow is one (domain, date) row of the destination table.
// Nil metric pointers are written as NULL.
type TrafficRow struct {
	Domain           string    `json:"domain"`
	Date             string    `json:"date"`
	Visits           *float64  `json:"visits"`
	AvgVisitDuration *float64  `json:"avg_visit_duration"`
	PagesPerVisit    *float64  `json:"pages_per_visit"`
	BounceRate       *float64  `json:"bounce_rate"`
	Source           string    `json:"source"`
	IngestedAt       time.Time `json:"ingested_at"`
}

// Engagement accumulates the optional engagement metrics for one date.
type Engagement struct {
	AvgVisitDuration *float64
	PagesPerVisit    *float64
	BounceRate       *float64
}

// Float returns a pointer to v. Convenience for building rows in tests and fixtures.
func Float(v float64) *float64 {
	return &v
}
