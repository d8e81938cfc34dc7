// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/vigil/internal/domain/model"
)

// IngestDependencies defines the interface for ingest processing dependencies.
type IngestDependencies interface {
	Enqueue(ctx context.Context, event model.IngestEvent) bool
}

// IngestHandler handles ingest notification requests.
type IngestHandler struct {
	deps IngestDependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps IngestDependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// ingestRequest mirrors the notification shape for POST /ingest.
type ingestRequest struct {
	SourceBucket string `json:"source_bucket"`
	SourceFile   string `json:"source_file"`
}

func (e ingestRequest) validate() error {
	switch {
	case strings.TrimSpace(e.SourceBucket) == "":
		return errors.New("missing source_bucket")
	case strings.TrimSpace(e.SourceFile) == "":
		return errors.New("missing source_file")
	}
	return nil
}

// HandlePostIngest handles POST /ingest requests.
func (h *IngestHandler) HandlePostIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_ingest"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	event := model.IngestEvent{
		SourceBucket: req.SourceBucket,
		SourceFile:   req.SourceFile,
	}
	if ok := h.deps.Enqueue(r.Context(), event); !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
