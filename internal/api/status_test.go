package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/quota"
)

type stubEngine struct {
	stats domain.RunStatistics
	phase string
}

func (s *stubEngine) Snapshot() domain.RunStatistics { return s.stats }
func (s *stubEngine) Phase() string                  { return s.phase }

func statusServer(t *testing.T) (*Server, *stubEngine) {
	t.Helper()
	store := quota.NewFileStore(filepath.Join(t.TempDir(), "quota.json"))
	require.NoError(t, store.Save(context.Background(), domain.DailyQuotaState{
		Date:           domain.QuotaDate(time.Now()),
		CountSentToday: 412,
	}))
	tracker := quota.NewTracker(store, 400, 450)
	tracker.Load(context.Background())

	engine := &stubEngine{
		phase: "sending",
		stats: domain.RunStatistics{
			RunID:          "run-123",
			Mode:           domain.ModeProduction,
			TotalAttempted: 12,
			Succeeded:      11,
			Failed:         1,
			StartedAt:      time.Now(),
		},
	}
	return NewServer(engine, tracker, "1.2.0"), engine
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := statusServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.0", body["version"])
	assert.NotEmpty(t, body["uptime"])
}

func TestStatusEndpoint(t *testing.T) {
	server, _ := statusServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sending", body.Phase)
	assert.Equal(t, "run-123", body.Run.RunID)
	assert.Equal(t, 12, body.Run.TotalAttempted)
	assert.Equal(t, 412, body.Quota.SentToday)
	assert.Equal(t, 38, body.Quota.Remaining)
	assert.Equal(t, 400, body.Quota.SoftLimit)
	assert.Equal(t, 450, body.Quota.HardLimit)
	assert.Equal(t, domain.QuotaDate(time.Now()), body.Quota.Date)
}

func TestStatusEndpointReflectsPhaseChanges(t *testing.T) {
	server, engine := statusServer(t)

	engine.phase = "finished"
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "finished", body.Phase)
}

func TestUnknownRouteReturns404(t *testing.T) {
	server, _ := statusServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusMethodNotAllowed(t *testing.T) {
	server, _ := statusServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShutdownWithoutStart(t *testing.T) {
	server, _ := statusServer(t)
	assert.NoError(t, server.Shutdown(context.Background()))
}
