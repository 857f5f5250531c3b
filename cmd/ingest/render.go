package main

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ignite/similarweb-ingest/internal/config"
	"github.com/ignite/similarweb-ingest/internal/domain"
)

// renderStatus prints the configuration summary.
func renderStatus(w io.Writer, cfg *config.Config, tableID string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"Domains", strings.Join(cfg.Ingest.Domains, ", ")},
		{"Period", cfg.Ingest.StartDate + " .. " + cfg.Ingest.EndDate},
		{"Granularity", cfg.Ingest.Granularity},
		{"Main domain only", cfg.Ingest.MainDomain()},
		{"Backend", cfg.Warehouse.Backend},
		{"Table", tableID},
		{"API key", apiKeyState(cfg.Similarweb.APIKey)},
		{"Run store", enabledState(cfg.Redis.Enabled())},
		{"Archive", enabledState(cfg.Archive.Enabled)},
	})
	t.Render()
}

// renderRows prints fetched rows; missing metrics show as "-".
func renderRows(w io.Writer, rows []domain.TrafficRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Domain", "Date", "Visits", "Avg Duration", "Pages/Visit", "Bounce Rate"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.Domain,
			r.Date,
			formatMetric(r.Visits),
			formatMetric(r.AvgVisitDuration),
			formatMetric(r.PagesPerVisit),
			formatMetric(r.BounceRate),
		})
	}
	t.AppendFooter(table.Row{"", "Rows", len(rows)})
	t.Render()
}

func formatMetric(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func apiKeyState(key string) string {
	if key == "" {
		return "missing"
	}
	return "set"
}

func enabledState(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
