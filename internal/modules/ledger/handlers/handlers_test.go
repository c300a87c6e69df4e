package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
	"github.com/aristath/papertrader/internal/modules/ledger"
)

func setupRouter(t *testing.T) (*chi.Mux, *ledger.Service) {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	store, err := ledger.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)
	svc := ledger.NewService(store, nil, logger)
	_, err = svc.Ensure(domain.StrategyMeta{ID: "value_investing", Seed: 25_000_000})
	require.NoError(t, err)

	router := chi.NewRouter()
	NewHandler(svc, logger).RegisterRoutes(router)
	return router, svc
}

func TestHandleGetLedger(t *testing.T) {
	router, svc := setupRouter(t)
	_, err := svc.Buy(context.Background(), "value_investing", ledger.BuyOrder{Ticker: "069500", Name: "KODEX 200", Shares: 10, Price: 35_000})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/strategies/value_investing/ledger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "value_investing", data["strategy_id"])
	assert.Equal(t, []interface{}{"069500"}, data["open_tickers"])
	assert.Equal(t, 350_000.0, data["cost_basis"])

	l := data["ledger"].(map[string]interface{})
	assert.Equal(t, 24_650_000.0, l["cash"])
	assert.Contains(t, response, "metadata")
}

func TestHandleGetLedger_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest("GET", "/strategies/unknown/ledger", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleReset(t *testing.T) {
	router, svc := setupRouter(t)
	_, err := svc.Buy(context.Background(), "value_investing", ledger.BuyOrder{Ticker: "069500", Shares: 10, Price: 35_000})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/strategies/value_investing/reset", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	l, err := svc.Get("value_investing")
	require.NoError(t, err)
	assert.True(t, l.HasOpenPositions(), "unconfirmed reset leaves the ledger alone")

	req = httptest.NewRequest("POST", "/strategies/value_investing/reset?confirm=yes", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	l, err = svc.Get("value_investing")
	require.NoError(t, err)
	assert.Equal(t, int64(25_000_000), l.Cash)
	assert.False(t, l.HasOpenPositions())
}
