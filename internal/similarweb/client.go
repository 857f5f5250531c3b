package similarweb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/metrics"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

const (
	endpointVisits     = "visits"
	endpointEngagement = "visits-duration"
)

// HTTPDoer is the interface for executing HTTP requests.
// *http.Client satisfies it; tests substitute their own transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a Similarweb API client
type Client struct {
	baseURL    string
	apiKey     string
	query      Query
	httpClient HTTPDoer
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default timeout-bound *http.Client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithMetrics records upstream request counters and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock overrides the ingested_at clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a new Similarweb API client for the configured date range.
func NewClient(cfg config.SimilarwebConfig, ingest config.IngestConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		query: Query{
			StartDate:      ingest.StartDate,
			EndDate:        ingest.EndDate,
			Granularity:    ingest.Granularity,
			MainDomainOnly: ingest.MainDomain(),
		},
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		now:        time.Now,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the parameters this client sends upstream.
func (c *Client) Query() Query {
	return c.query
}

// buildParams builds URL parameters shared by both endpoints
func (c *Client) buildParams() url.Values {
	params := url.Values{}
	params.Set("start_date", c.query.StartDate)
	params.Set("end_date", c.query.EndDate)
	params.Set("granularity", c.query.Granularity)
	params.Set("main_domain_only", strconv.FormatBool(c.query.MainDomainOnly))
	params.Set("api_key", c.apiKey)
	return params
}

func (c *Client) endpointURL(site, endpoint string) string {
	return fmt.Sprintf("%s/website/%s/total-traffic-and-engagement/%s",
		c.baseURL, url.PathEscape(site), endpoint)
}

// doRequest issues one GET and returns the status code and body. A non-nil
// error means no usable response was received.
func (c *Client) doRequest(ctx context.Context, endpoint, fullURL string) (int, []byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, 0, time.Since(start))
		return 0, nil, fmt.Errorf("executing request: %w", scrubURLError(err))
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// scrubURLError removes the api_key from the request URL that net/http
// embeds in transport errors. The error text ends up in run records.
func scrubURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = logger.RedactURL(uerr.URL)
	}
	return err
}

// GetVisits fetches the visits series for a domain. Any non-200 response is
// returned as a *GatewayError.
func (c *Client) GetVisits(ctx context.Context, site string) (*VisitsResponse, error) {
	fullURL := c.endpointURL(site, endpointVisits) + "?" + c.buildParams().Encode()

	status, body, err := c.doRequest(ctx, endpointVisits, fullURL)
	if err != nil {
		return nil, &GatewayError{Domain: site, StatusCode: status, Err: err}
	}
	if status != http.StatusOK {
		return nil, &GatewayError{Domain: site, StatusCode: status, Body: string(body)}
	}

	var response VisitsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, &GatewayError{Domain: site, Err: fmt.Errorf("parsing visits: %w", err)}
	}
	return &response, nil
}

// GetEngagement fetches the engagement series for a domain.
func (c *Client) GetEngagement(ctx context.Context, site string) (*EngagementResponse, error) {
	fullURL := c.endpointURL(site, endpointEngagement) + "?" + c.buildParams().Encode()

	status, body, err := c.doRequest(ctx, endpointEngagement, fullURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", status, string(body))
	}

	var response EngagementResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("parsing engagement: %w", err)
	}
	return &response, nil
}

// FetchVisits returns one row per date of the visits series, in upstream
// order, enriched with whatever engagement metrics exist for that date.
// A failed visits call aborts; a failed engagement call only drops the
// engagement columns.
func (c *Client) FetchVisits(ctx context.Context, site string) ([]domain.TrafficRow, error) {
	visits, err := c.GetVisits(ctx, site)
	if err != nil {
		return nil, err
	}

	engagement := engagementByDate{}
	if resp, err := c.GetEngagement(ctx, site); err != nil {
		logger.Warn("similarweb: engagement unavailable, continuing without it",
			"domain", site, "error", err)
	} else {
		engagement = newEngagementByDate(resp)
	}

	rows := make([]domain.TrafficRow, 0, len(visits.Visits))
	for _, point := range visits.Visits {
		e := engagement.lookup(point.Date)
		rows = append(rows, domain.TrafficRow{
			Domain:           site,
			Date:             point.Date,
			Visits:           point.Visits,
			AvgVisitDuration: e.AvgVisitDuration,
			PagesPerVisit:    e.PagesPerVisit,
			BounceRate:       e.BounceRate,
			Source:           domain.SourceSimilarweb,
			IngestedAt:       c.now().UTC(),
		})
	}

	logger.Debug("similarweb: fetched domain",
		"domain", site, "rows", len(rows), "engagement_dates", len(engagement))
	return rows, nil
}
