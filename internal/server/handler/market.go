package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// MarketHandler serves the market browse and detail endpoints. The browse
// response is served read-through from the snapshot cache when one is
// configured.
type MarketHandler struct {
	browse      domain.BrowseReader
	markets     domain.MarketStore
	scores      domain.ScoreStore
	annotations domain.AnnotationStore
	snapshots   domain.SnapshotCache // optional
	snapshotTTL time.Duration
	logger      *slog.Logger
}

// NewMarketHandler creates a MarketHandler. snapshots may be nil to disable
// response caching.
func NewMarketHandler(
	browse domain.BrowseReader,
	markets domain.MarketStore,
	scores domain.ScoreStore,
	annotations domain.AnnotationStore,
	snapshots domain.SnapshotCache,
	snapshotTTL time.Duration,
	logger *slog.Logger,
) *MarketHandler {
	return &MarketHandler{
		browse:      browse,
		markets:     markets,
		scores:      scores,
		annotations: annotations,
		snapshots:   snapshots,
		snapshotTTL: snapshotTTL,
		logger:      logger,
	}
}

// ListMarkets returns the joined browse rows: record + current score +
// annotation, ordered by score descending.
// GET /api/markets?limit=&offset=&min_score=&tag=&state=
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "markets.list")
	opts := parseBrowseOpts(r)

	cacheKey := browseCacheKey(opts)
	if h.snapshots != nil {
		if data, err := h.snapshots.Get(r.Context(), cacheKey); err == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		} else if !errors.Is(err, domain.ErrNotFound) {
			log.WarnContext(r.Context(), "snapshot cache read failed",
				slog.String("error", err.Error()))
		}
	}

	rows, err := h.browse.Browse(r.Context(), opts)
	if err != nil {
		log.ErrorContext(r.Context(), "browse failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}
	if rows == nil {
		rows = []domain.BrowseRow{}
	}

	body := map[string]any{
		"markets": rows,
		"count":   len(rows),
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	}

	data, err := json.Marshal(body)
	if err != nil {
		log.ErrorContext(r.Context(), "marshal browse response failed",
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	if h.snapshots != nil {
		if err := h.snapshots.Set(r.Context(), cacheKey, data, h.snapshotTTL); err != nil {
			log.WarnContext(r.Context(), "snapshot cache write failed",
				slog.String("error", err.Error()))
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", "miss")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetMarket returns one market with its current score and annotation.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "markets.get")
	id := pathParam(r, "id")

	rec, err := h.markets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		log.ErrorContext(r.Context(), "get market failed",
			slog.String("market_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load market")
		return
	}

	row := domain.BrowseRow{Record: rec}

	if score, err := h.scores.GetByMarketID(r.Context(), id); err == nil {
		row.Score = &score
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.ErrorContext(r.Context(), "get score failed",
			slog.String("market_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load market")
		return
	}

	if ann, err := h.annotations.GetByMarketID(r.Context(), id); err == nil {
		row.Annotation = &ann
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.ErrorContext(r.Context(), "get annotation failed",
			slog.String("market_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load market")
		return
	}

	writeJSON(w, http.StatusOK, row)
}

// GetHistory returns the score history for one market, newest first.
// GET /api/markets/{id}/history?limit=&offset=
func (h *MarketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "markets.history")
	id := pathParam(r, "id")
	opts := parseListOpts(r)

	history, err := h.scores.ListHistory(r.Context(), id, opts)
	if err != nil {
		log.ErrorContext(r.Context(), "list score history failed",
			slog.String("market_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load score history")
		return
	}
	if history == nil {
		history = []domain.ScoreResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"history":   history,
		"count":     len(history),
	})
}

// parseBrowseOpts extends parseListOpts with the browse-specific filters.
func parseBrowseOpts(r *http.Request) domain.ListOpts {
	opts := parseListOpts(r)
	q := r.URL.Query()

	if v := q.Get("min_score"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			opts.MinScore = f
		}
	}
	opts.Tag = q.Get("tag")
	opts.State = q.Get("state")
	return opts
}

// browseCacheKey derives a stable snapshot key from the query shape so
// distinct filters cache independently.
func browseCacheKey(opts domain.ListOpts) string {
	return fmt.Sprintf("browse:%d:%d:%g:%s:%s",
		opts.Limit, opts.Offset, opts.MinScore, opts.Tag, opts.State)
}
