package similarweb

import "github.com/ignite/similarweb-ingest/internal/domain"

// engagementByDate merges the three engagement series into one record per date.
type engagementByDate map[string]*domain.Engagement

func newEngagementByDate(resp *EngagementResponse) engagementByDate {
	m := engagementByDate{}
	if resp == nil {
		return m
	}
	for _, p := range resp.AvgVisitDuration {
		m.entry(p.Date).AvgVisitDuration = p.Value
	}
	for _, p := range resp.PagesPerVisit {
		m.entry(p.Date).PagesPerVisit = p.Value
	}
	for _, p := range resp.BounceRate {
		m.entry(p.Date).BounceRate = p.Value
	}
	return m
}

func (m engagementByDate) entry(date string) *domain.Engagement {
	e, ok := m[date]
	if !ok {
		e = &domain.Engagement{}
		m[date] = e
	}
	return e
}

// lookup returns the record for date, or an empty one.
func (m engagementByDate) lookup(date string) domain.Engagement {
	if e, ok := m[date]; ok {
		return *e
	}
	return domain.Engagement{}
}
