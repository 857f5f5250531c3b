package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/ignite/similarweb-ingest/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pinger is anything that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	pinger   Pinger
	critical bool
	timeout  time.Duration
	slow     time.Duration
}

// HealthChecker pings the warehouse and optional collaborators.
type HealthChecker struct {
	deps      map[string]dependency
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker whose only critical dependency
// is the warehouse.
func NewHealthChecker(wh Pinger) *HealthChecker {
	hc := &HealthChecker{
		deps:      make(map[string]dependency),
		startTime: time.Now(),
	}
	hc.deps["warehouse"] = dependency{pinger: wh, critical: true, timeout: 5 * time.Second, slow: 2 * time.Second}
	return hc
}

// AddCheck registers a non-critical dependency. A nil pinger is reported as
// not configured.
func (hc *HealthChecker) AddCheck(name string, p Pinger) *HealthChecker {
	hc.deps[name] = dependency{pinger: p, timeout: 2 * time.Second, slow: 500 * time.Millisecond}
	return hc
}

const healthVersion = "1.0.0"

// HandleHealth returns the status of every dependency. Always 200; the
// body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	httputil.OK(w, HealthStatus{
		Status:  hc.overallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness always returns 200 while the process is up.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := hc.overallStatus(checks)

	ready := overall != "unhealthy"
	httpStatus := http.StatusOK
	if !ready {
		httpStatus = http.StatusServiceUnavailable
	}

	httputil.JSON(w, httpStatus, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, len(hc.deps))

	for name, dep := range hc.deps {
		name, dep := name, dep
		go func() { ch <- result{name, checkDependency(ctx, dep)} }()
	}

	checks := make(map[string]ComponentCheck, len(hc.deps))
	for range hc.deps {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

func checkDependency(ctx context.Context, dep dependency) ComponentCheck {
	if dep.pinger == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	pingCtx, cancel := context.WithTimeout(ctx, dep.timeout)
	defer cancel()

	start := time.Now()
	err := dep.pinger.Ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	if latency > dep.slow {
		return ComponentCheck{
			Status:  "degraded",
			Latency: latency.String(),
			Message: fmt.Sprintf("slow response (%s)", latency),
		}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

// overallStatus derives the aggregate status:
//   - "unhealthy" if a critical dependency is down
//   - "degraded"  if any check is degraded or a configured non-critical one is down
//   - "healthy"   otherwise
func (hc *HealthChecker) overallStatus(checks map[string]ComponentCheck) string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := "healthy"
	for _, name := range names {
		c := checks[name]
		switch {
		case c.Status == "down" && hc.deps[name].critical:
			return "unhealthy"
		case c.Status == "degraded":
			overall = "degraded"
		case c.Status == "down" && c.Message != "not configured":
			overall = "degraded"
		}
	}
	return overall
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
