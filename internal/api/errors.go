package api

import (
	"net/http"

	"github.com/ignite/similarweb-ingest/internal/ingest"
	"github.com/ignite/similarweb-ingest/internal/pkg/httputil"
	"github.com/ignite/similarweb-ingest/internal/pkg/logger"
	"github.com/ignite/similarweb-ingest/internal/similarweb"
	"github.com/ignite/similarweb-ingest/internal/warehouse"
)

// Error classes reported in the "code" field.
const (
	codeConfig    = "config_error"
	codeGateway   = "gateway_error"
	codeInsert    = "insert_error"
	codeProvision = "provision_error"
	codeInternal  = "internal_error"
)

// classifyRunError maps a run failure to its HTTP status and error class.
func classifyRunError(err error) (int, string) {
	switch {
	case similarweb.IsGatewayError(err):
		return http.StatusBadGateway, codeGateway
	case ingest.IsConfigError(err):
		return http.StatusInternalServerError, codeConfig
	case warehouse.IsInsertError(err):
		return http.StatusInternalServerError, codeInsert
	case warehouse.IsProvisionError(err):
		return http.StatusInternalServerError, codeProvision
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// respondRunError reports a run failure. Classified errors carry their
// message to the caller with any api_key scrubbed; anything else gets a
// generic message and is only logged.
func respondRunError(w http.ResponseWriter, err error) {
	status, code := classifyRunError(err)
	if code == codeInternal {
		httputil.InternalError(w, code, err)
		return
	}

	msg := logger.RedactURL(err.Error())
	logger.Warn("api: run failed", "status", status, "code", code, "error", msg)
	httputil.ErrorCode(w, status, code, msg)
}
