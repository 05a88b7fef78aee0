package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// SyncTrigger requests an out-of-band catalog sync. Returns false when a run
// is already queued.
type SyncTrigger interface {
	Trigger() bool
}

// SyncHandler serves the sync status and trigger endpoints.
type SyncHandler struct {
	status  domain.RunStatusStore
	trigger SyncTrigger
	logger  *slog.Logger
}

// NewSyncHandler creates a SyncHandler. trigger may be nil when the process
// runs in server-only mode with no embedded pipeline.
func NewSyncHandler(status domain.RunStatusStore, trigger SyncTrigger, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{status: status, trigger: trigger, logger: logger}
}

// GetStatus returns the singleton run-status record.
// GET /api/status
func (h *SyncHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.status.Get(r.Context())
	if err != nil {
		logHandler(h.logger, "status").ErrorContext(r.Context(), "get run status failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load run status")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// TriggerSync enqueues one catalog sync run. The send is non-blocking; when a
// run is already queued the request is coalesced into it.
// POST /api/sync/trigger
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "sync pipeline is not running in this process")
		return
	}

	queued := h.trigger.Trigger()
	h.logger.InfoContext(r.Context(), "handler: sync trigger requested",
		slog.Bool("queued", queued))

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
