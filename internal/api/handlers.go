package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ignite/similarweb-ingest/internal/domain"
	"github.com/ignite/similarweb-ingest/internal/ingest"
	"github.com/ignite/similarweb-ingest/internal/pkg/httputil"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// RunService is the subset of *ingest.Runner the handlers use.
type RunService interface {
	Run(ctx context.Context) (*ingest.Result, error)
	Status(ctx context.Context) ingest.StatusReport
	History(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// Handlers contains HTTP handlers
type Handlers struct {
	runner RunService
}

// NewHandlers creates a new Handlers instance
func NewHandlers(runner RunService) *Handlers {
	return &Handlers{runner: runner}
}

// HandleStatus reports the configured domains and destination table.
//
//	GET /
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.runner.Status(r.Context()))
}

// HandleRun executes one ingestion run and reports the inserted row count.
// The run is detached from request cancellation so a dropped client does
// not abandon a half-finished run.
//
//	POST /run
func (h *Handlers) HandleRun(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		respondRunError(w, err)
		return
	}
	httputil.OK(w, result)
}

// HandleRuns lists recent runs, newest first.
//
//	GET /runs?limit=N
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.ErrorCode(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.runner.History(r.Context(), limit)
	if err != nil {
		logger.Error("api: reading run history", "error", err)
		httputil.ErrorCode(w, http.StatusInternalServerError, codeInternal, "run history unavailable")
		return
	}
	httputil.OK(w, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
