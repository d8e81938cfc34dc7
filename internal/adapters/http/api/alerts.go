// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/vigil/internal/domain/model"
)

// AlertsDependencies defines the interface for alert queries.
type AlertsDependencies interface {
	Alerts(ctx context.Context, sourceFile string) ([]model.FlaggedRecord, error)
}

// AlertsHandler handles alert query requests.
type AlertsHandler struct {
	deps AlertsDependencies
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(deps AlertsDependencies) *AlertsHandler {
	return &AlertsHandler{deps: deps}
}

// HandleGetAlerts handles GET /alerts?source_file=NAME requests.
func (h *AlertsHandler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_alerts"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sourceFile := r.URL.Query().Get("source_file")
	if sourceFile == "" {
		// Rejected before any store access.
		writeError(w, http.StatusBadRequest, "missing_parameter", NewKind(op, ErrMissingParameter))
		return
	}
	records, err := h.deps.Alerts(r.Context(), sourceFile)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	if records == nil {
		records = []model.FlaggedRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}
