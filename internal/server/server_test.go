package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arduino-watcher/internal/database"
	"github.com/aristath/arduino-watcher/internal/domain"
	"github.com/aristath/arduino-watcher/internal/events"
	"github.com/aristath/arduino-watcher/internal/store"
)

func newTestServer(t *testing.T) *Server {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	st := store.New(db, log)
	hub := events.NewHub(log)
	em := events.NewManager(log)
	em.AttachHub(hub)

	return New(Config{
		Port:   0,
		Log:    log,
		Store:  st,
		Events: em,
		Hub:    hub,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "arduino-watcher", body["service"])
}

func TestSystemStatusReportsWsClients(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/system/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["ws_clients"])
}

func TestTaskCRUDRoundTrip(t *testing.T) {
	s := newTestServer(t)

	created := doJSON(t, s, http.MethodPost, "/api/tasks", domain.Task{
		Title:        "watch 600519",
		Kind:         domain.TaskKindManual,
		StockSymbols: []string{"600519"},
	})
	require.Equal(t, http.StatusCreated, created.Code)

	var task domain.Task
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &task))
	assert.NotEmpty(t, task.ID)

	got := doJSON(t, s, http.MethodGet, "/api/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusOK, got.Code)

	notFound := doJSON(t, s, http.MethodGet, "/api/tasks/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, notFound.Code)

	deleted := doJSON(t, s, http.MethodDelete, "/api/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNoContent, deleted.Code)
}

func TestValidateFormulaEndpoint(t *testing.T) {
	s := newTestServer(t)

	ok := doJSON(t, s, http.MethodPost, "/api/formulas/validate", map[string]string{
		"source": "MA5 := MA(CLOSE, 5);\nSIGNAL : CLOSE > MA5;",
	})
	assert.Equal(t, http.StatusOK, ok.Code)
	var okBody map[string]interface{}
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &okBody))
	assert.Equal(t, true, okBody["valid"])

	bad := doJSON(t, s, http.MethodPost, "/api/formulas/validate", map[string]string{
		"source": "((",
	})
	assert.Equal(t, http.StatusOK, bad.Code)
	var badBody map[string]interface{}
	require.NoError(t, json.Unmarshal(bad.Body.Bytes(), &badBody))
	assert.Equal(t, false, badBody["valid"])
	assert.NotEmpty(t, badBody["errors"])
}

func TestKnowledgeSearchRequiresQueryParam(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/knowledge/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchlistCRUDRoundTrip(t *testing.T) {
	s := newTestServer(t)

	created := doJSON(t, s, http.MethodPost, "/api/watchlist", domain.WatchlistItem{
		Symbol: "600519",
		Name:   "Kweichow Moutai",
	})
	require.Equal(t, http.StatusCreated, created.Code)

	list := doJSON(t, s, http.MethodGet, "/api/watchlist", nil)
	assert.Equal(t, http.StatusOK, list.Code)

	var items []domain.WatchlistItem
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &items))
	require.Len(t, items, 1)

	deleted := doJSON(t, s, http.MethodDelete, "/api/watchlist/"+items[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, deleted.Code)
}
