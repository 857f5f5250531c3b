package similarweb

// Query holds the parameters shared by the visits and engagement endpoints.
type Query struct {
	StartDate      string // YYYY-MM
	EndDate        string // YYYY-MM
	Granularity    string // daily, weekly, monthly
	MainDomainOnly bool
}

// VisitsResponse is the body of the total-traffic-and-engagement/visits endpoint.
type VisitsResponse struct {
	Meta   *ResponseMeta `json:"meta,omitempty"`
	Visits []VisitPoint  `json:"visits"`
}

// VisitPoint is one date of the visits series.
type VisitPoint struct {
	Date   string   `json:"date"`
	Visits *float64 `json:"visits"`
}

// EngagementResponse is the body of the total-traffic-and-engagement/visits-duration
// endpoint. Each metric is its own date series.
type EngagementResponse struct {
	Meta             *ResponseMeta `json:"meta,omitempty"`
	AvgVisitDuration []MetricPoint `json:"avg_visit_duration"`
	PagesPerVisit    []MetricPoint `json:"pages_per_visit"`
	BounceRate       []MetricPoint `json:"bounce_rate"`
}

// MetricPoint is one {date, value} record of an engagement series.
type MetricPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// ResponseMeta carries the request echo Similarweb returns with each series.
type ResponseMeta struct {
	Request struct {
		Granularity    string `json:"granularity"`
		MainDomainOnly bool   `json:"main_domain_only"`
		Domain         string `json:"domain"`
		StartDate      string `json:"start_date"`
		EndDate        string `json:"end_date"`
	} `json:"request"`
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated"`
}
