package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// ScoreConfigHandler serves the admin override surface for scoring
// parameters. It is the only writer of the stored override; the pipeline
// merges it on top of the file-based defaults at the start of every run.
type ScoreConfigHandler struct {
	store    domain.ScoreConfigStore
	defaults domain.ScoreConfig
	logger   *slog.Logger
}

// NewScoreConfigHandler creates a ScoreConfigHandler.
func NewScoreConfigHandler(store domain.ScoreConfigStore, defaults domain.ScoreConfig, logger *slog.Logger) *ScoreConfigHandler {
	return &ScoreConfigHandler{store: store, defaults: defaults, logger: logger}
}

// GetConfig returns the file-based defaults, the stored override (null when
// none exists), and the effective merged config the next run will use.
// GET /api/score-config
func (h *ScoreConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "score_config.get")

	override, err := h.store.Get(r.Context())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.ErrorContext(r.Context(), "get score config failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load score config")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"defaults":  h.defaults,
		"override":  override,
		"effective": domain.ResolveConfig(h.defaults, override),
	})
}

// UpdateConfig replaces the stored override. Fields omitted from the body
// inherit the file-based defaults at run time.
// PUT /api/score-config
func (h *ScoreConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "score_config.update")

	var override domain.ScoreConfigOverride
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&override); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	if err := validateOverride(&override); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Put(r.Context(), override); err != nil {
		log.ErrorContext(r.Context(), "put score config failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to store score config")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"override":  override,
		"effective": domain.ResolveConfig(h.defaults, &override),
	})
}

// validateOverride rejects values the pipeline cannot run with.
func validateOverride(o *domain.ScoreConfigOverride) error {
	if o.RefPercentile != nil && (*o.RefPercentile <= 0 || *o.RefPercentile > 1) {
		return errors.New("refPercentile must be in (0, 1]")
	}
	if o.BatchSize != nil && *o.BatchSize < 1 {
		return errors.New("batchSize must be >= 1")
	}
	if o.MaxMarkets != nil && *o.MaxMarkets < 0 {
		return errors.New("maxMarkets must be >= 0")
	}
	if o.ScoreVersion != nil && *o.ScoreVersion == "" {
		return errors.New("scoreVersion must not be empty")
	}
	if o.Penalties != nil {
		if o.Penalties.Restricted > 0 || o.Penalties.MissingTags > 0 || o.Penalties.ShortHorizon > 0 {
			return errors.New("penalties must be <= 0")
		}
	}
	return nil
}
