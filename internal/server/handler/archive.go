package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// ArchiveHandler serves the raw-catalog archive audit surface.
type ArchiveHandler struct {
	blobs  domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(blobs domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{blobs: blobs, logger: logger}
}

// ListArchives returns metadata for all archived catalog snapshots.
// GET /api/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "archives.list")

	infos, err := h.blobs.List(r.Context(), "catalog/")
	if err != nil {
		log.ErrorContext(r.Context(), "list archives failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archives": infos,
		"count":    len(infos),
	})
}

// GetArchive streams one archived snapshot. HEAD requests answer existence
// without transferring the body.
// GET /api/archives/{key...}
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "archives.get")
	key := "catalog/" + pathParam(r, "key")

	if r.Method == http.MethodHead {
		ok, err := h.blobs.Exists(r.Context(), key)
		if err != nil {
			log.ErrorContext(r.Context(), "archive head failed",
				slog.String("key", key), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to check archive")
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := h.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		log.ErrorContext(r.Context(), "get archive failed",
			slog.String("key", key), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		log.WarnContext(r.Context(), "stream archive interrupted",
			slog.String("key", key), slog.String("error", err.Error()))
	}
}
