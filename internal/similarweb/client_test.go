package similarweb

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/metrics"
)

const testBase = "https://sw.test/v1"

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))

func newTestClient(transport http.RoundTripper, opts ...Option) *Client {
	mainOnly := true
	cfg := config.SimilarwebConfig{APIKey: "test-api-key", BaseURL: testBase + "/", TimeoutSeconds: 5}
	ingest := config.IngestConfig{
		StartDate:      "2024-01",
		EndDate:        "2024-02",
		Granularity:    "monthly",
		MainDomainOnly: &mainOnly,
	}
	opts = append([]Option{
		WithHTTPClient(&http.Client{Transport: transport}),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	return NewClient(cfg, ingest, opts...)
}

func visitsURL(site string) string {
	return testBase + "/website/" + site + "/total-traffic-and-engagement/visits"
}

func engagementURL(site string) string {
	return testBase + "/website/" + site + "/total-traffic-and-engagement/visits-duration"
}

func TestFetchVisitsJoinsEngagement(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[
			{"date":"2024-01-01","visits":100},
			{"date":"2024-02-01","visits":250.5}
		]}`))
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"),
		httpmock.NewStringResponder(200, `{
			"avg_visit_duration":[{"date":"2024-01-01","value":61.2},{"date":"2024-02-01","value":70}],
			"pages_per_visit":[{"date":"2024-01-01","value":3.1}],
			"bounce_rate":[{"date":"2024-02-01","value":0.42},{"date":"2023-12-01","value":0.5}]
		}`))

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, domain.TrafficRow{
		Domain:           "a.com",
		Date:             "2024-01-01",
		Visits:           domain.Float(100),
		AvgVisitDuration: domain.Float(61.2),
		PagesPerVisit:    domain.Float(3.1),
		Source:           "similarweb",
		IngestedAt:       fixedNow.UTC(),
	}, rows[0])

	assert.Equal(t, "2024-02-01", rows[1].Date)
	assert.Equal(t, 250.5, *rows[1].Visits)
	assert.Equal(t, 70.0, *rows[1].AvgVisitDuration)
	assert.Nil(t, rows[1].PagesPerVisit)
	assert.Equal(t, 0.42, *rows[1].BounceRate)
	assert.Equal(t, time.UTC, rows[1].IngestedAt.Location())
}

func TestFetchVisitsSendsQueryParameters(t *testing.T) {
	transport := httpmock.NewMockTransport()
	check := func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "2024-01", q.Get("start_date"))
		assert.Equal(t, "2024-02", q.Get("end_date"))
		assert.Equal(t, "monthly", q.Get("granularity"))
		assert.Equal(t, "true", q.Get("main_domain_only"))
		assert.Equal(t, "test-api-key", q.Get("api_key"))
		return httpmock.NewStringResponse(200, `{"visits":[]}`), nil
	}
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"), check)
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"), check)

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestFetchVisitsEngagementFailureIsTolerated(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[{"date":"2024-01-01","visits":100}]}`))
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"),
		httpmock.NewStringResponder(403, `{"error":"not in plan"}`))

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, domain.TrafficRow{
		Domain:     "a.com",
		Date:       "2024-01-01",
		Visits:     domain.Float(100),
		Source:     domain.SourceSimilarweb,
		IngestedAt: fixedNow.UTC(),
	}, rows[0])
}

func TestFetchVisitsEngagementMissingDate(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[{"date":"2024-01-01","visits":1},{"date":"2024-02-01","visits":2}]}`))
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"),
		httpmock.NewStringResponder(200, `{"avg_visit_duration":[{"date":"2024-02-01","value":9}]}`))

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Nil(t, rows[0].AvgVisitDuration)
	assert.Nil(t, rows[0].PagesPerVisit)
	assert.Nil(t, rows[0].BounceRate)
	assert.Equal(t, 9.0, *rows[1].AvgVisitDuration)
}

func TestFetchVisitsNullVisits(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[{"date":"2024-01-01","visits":null}]}`))
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"),
		httpmock.NewStringResponder(200, `{}`))

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Visits)
}

func TestFetchVisitsPreservesUpstreamOrder(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[
			{"date":"2024-03-01","visits":3},
			{"date":"2024-01-01","visits":1},
			{"date":"2024-02-01","visits":2}
		]}`))
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"),
		httpmock.NewStringResponder(500, ``))

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)

	var dates []string
	for _, r := range rows {
		dates = append(dates, r.Date)
	}
	assert.Equal(t, []string{"2024-03-01", "2024-01-01", "2024-02-01"}, dates)
}

func TestFetchVisitsUpstreamErrorIsGatewayError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(500, `internal`))

	rows, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.Error(t, err)
	assert.Nil(t, rows)

	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "a.com", gerr.Domain)
	assert.Equal(t, 500, gerr.StatusCode)
	assert.Equal(t, "internal", gerr.Body)
	assert.Equal(t, "similarweb error for a.com: 500 internal", err.Error())

	// engagement is never requested once visits fail
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestFetchVisitsTransportErrorIsGatewayError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewErrorResponder(assert.AnError))

	_, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.Error(t, err)
	assert.True(t, IsGatewayError(err))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTransportErrorDoesNotLeakAPIKey(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewErrorResponder(assert.AnError))

	_, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-api-key")
	assert.Contains(t, err.Error(), "api_key=***")
}

func TestFetchVisitsMalformedBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits": "nope"`))

	_, err := newTestClient(transport).FetchVisits(context.Background(), "a.com")
	assert.True(t, IsGatewayError(err))
}

func TestFetchVisitsRecordsMetrics(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[]}`))
	transport.RegisterResponder(http.MethodGet, engagementURL("a.com"),
		httpmock.NewStringResponder(404, ``))

	m := metrics.New()
	_, err := newTestClient(transport, WithMetrics(m)).FetchVisits(context.Background(), "a.com")
	require.NoError(t, err)

	assert.Equal(t, 1, testCount(t, m, "visits", "200"))
	assert.Equal(t, 1, testCount(t, m, "visits-duration", "404"))
}

func TestNewClientRateLimiter(t *testing.T) {
	cfg := config.SimilarwebConfig{BaseURL: testBase, RequestsPerSecond: 2, Burst: 1}
	c := NewClient(cfg, config.IngestConfig{})
	require.NotNil(t, c.limiter)

	c = NewClient(config.SimilarwebConfig{BaseURL: testBase}, config.IngestConfig{})
	assert.Nil(t, c.limiter)
	assert.True(t, c.Query().MainDomainOnly)
}

func TestRateLimiterHonoursCancelledContext(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, visitsURL("a.com"),
		httpmock.NewStringResponder(200, `{"visits":[]}`))

	c := newTestClient(transport)
	c.limiter = newTestLimiter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchVisits(ctx, "a.com")
	require.Error(t, err)
	assert.Equal(t, 0, transport.GetTotalCallCount())
}

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1), 1)
}

func testCount(t *testing.T, m *metrics.Metrics, endpoint, status string) int {
	t.Helper()
	return int(testutil.ToFloat64(m.UpstreamRequests.WithLabelValues(endpoint, status)))
}
