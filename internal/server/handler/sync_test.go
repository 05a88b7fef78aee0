package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollis-labs/marketscout/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestGetStatus(t *testing.T) {
	at := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	status := &fakeRunStatusStore{status: domain.RunStatus{
		LastAttemptedAt: &at,
		LastSucceededAt: &at,
		LastStats:       &domain.RunStats{EventCount: 10, MarketCount: 42},
	}}
	h := NewSyncHandler(status, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.LastStats)
	assert.Equal(t, 42, got.LastStats.MarketCount)
}

func TestTriggerSyncWithoutPipeline(t *testing.T) {
	h := NewSyncHandler(&fakeRunStatusStore{}, nil, discardLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync/trigger", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTriggerSync(t *testing.T) {
	trigger := &fakeTrigger{queued: true}
	h := NewSyncHandler(&fakeRunStatusStore{}, trigger, discardLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync/trigger", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, trigger.calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["queued"])
	assert.Equal(t, "accepted", body["status"])
}

func TestTriggerSyncCoalesced(t *testing.T) {
	h := NewSyncHandler(&fakeRunStatusStore{}, &fakeTrigger{queued: false}, discardLogger())

	rec := httptest.NewRecorder()
	h.TriggerSync(rec, httptest.NewRequest(http.MethodPost, "/api/sync/trigger", nil))

	// Still accepted: the pending run covers this request.
	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["queued"])
}
