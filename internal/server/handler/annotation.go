package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// validAnnotationStates enumerates the analyst workflow states.
var validAnnotationStates = map[string]bool{
	"new":        true,
	"reviewing":  true,
	"shortlist":  true,
	"researched": true,
	"rejected":   true,
}

// AnnotationHandler serves the analyst annotation endpoint.
type AnnotationHandler struct {
	annotations domain.AnnotationStore
	logger      *slog.Logger
}

// NewAnnotationHandler creates an AnnotationHandler.
func NewAnnotationHandler(annotations domain.AnnotationStore, logger *slog.Logger) *AnnotationHandler {
	return &AnnotationHandler{annotations: annotations, logger: logger}
}

type annotationRequest struct {
	State string `json:"state"`
	Notes string `json:"notes"`
}

// UpdateAnnotation overwrites the analyst state and notes of a market's
// annotation. Only markets already seen by a sync run have annotation rows.
// PUT /api/markets/{id}/annotation
func (h *AnnotationHandler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "annotations.update")
	id := pathParam(r, "id")

	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.State = strings.ToLower(strings.TrimSpace(req.State))
	if !validAnnotationStates[req.State] {
		writeError(w, http.StatusBadRequest,
			"invalid state (valid: new, reviewing, shortlist, researched, rejected)")
		return
	}

	ann := domain.Annotation{
		MarketID: id,
		State:    req.State,
		Notes:    req.Notes,
	}
	if err := h.annotations.Update(r.Context(), ann); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		log.ErrorContext(r.Context(), "update annotation failed",
			slog.String("market_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to update annotation")
		return
	}

	updated, err := h.annotations.GetByMarketID(r.Context(), id)
	if err != nil {
		log.ErrorContext(r.Context(), "reload annotation failed",
			slog.String("market_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load annotation")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
