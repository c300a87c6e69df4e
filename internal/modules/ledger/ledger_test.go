package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
)

func TestLedger_PreservesUnknownFields(t *testing.T) {
	raw := `{
		"cash": 1000,
		"holdings": {"005930": {"shares": 2, "avg_price": 500, "name": "Samsung", "buy_date": "2026-02-25T09:01:00", "sector": "tech"}},
		"trades": [{"type": "BUY", "ticker": "005930", "name": "Samsung", "shares": 2, "price": 500, "amount": 1000, "date": "2026-02-25T09:01:00", "strategy": "dual_momentum"}],
		"seed": 2000,
		"created": "2026-02-01T08:00:00",
		"total_profit": 1234,
		"notes": {"owner": "desk-a"}
	}`

	var l Ledger
	require.NoError(t, json.Unmarshal([]byte(raw), &l))
	assert.Equal(t, int64(1000), l.Cash)
	assert.Equal(t, int64(2), l.Holdings["005930"].Shares)

	notes, ok := l.Extra("notes")
	require.True(t, ok)
	assert.JSONEq(t, `{"owner": "desk-a"}`, string(notes))

	l.Cash = 900
	out, err := json.Marshal(l)
	require.NoError(t, err)

	var roundTrip map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.Equal(t, 900.0, roundTrip["cash"])
	assert.Equal(t, 1234.0, roundTrip["total_profit"])
	assert.Contains(t, roundTrip, "notes")

	holding := roundTrip["holdings"].(map[string]interface{})["005930"].(map[string]interface{})
	assert.Equal(t, "tech", holding["sector"])
	trade := roundTrip["trades"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "dual_momentum", trade["strategy"])
	assert.Equal(t, "BUY", trade["type"])
}

func TestLedger_BuyKeepsHoldingExtras(t *testing.T) {
	raw := `{
		"cash": 10000,
		"holdings": {"005930": {"shares": 2, "avg_price": 500, "name": "Samsung", "buy_date": "2026-02-25T09:01:00", "sector": "tech"}},
		"trades": [],
		"seed": 11000,
		"created": "2026-02-01T08:00:00"
	}`

	var l Ledger
	require.NoError(t, json.Unmarshal([]byte(raw), &l))

	_, err := l.applyBuy(BuyOrder{Ticker: "005930", Shares: 2, Price: 700}, stamp{ID: "t1", At: time.Date(2026, 2, 26, 9, 1, 0, 0, time.UTC)})
	require.NoError(t, err)

	out, err := json.Marshal(l)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"sector":"tech"`)
	assert.Equal(t, 600.0, l.Holdings["005930"].AvgPrice)
}

func TestLedger_MarshalEmptyCollections(t *testing.T) {
	out, err := json.Marshal(Ledger{Seed: 10, Cash: 10})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"holdings":{}`)
	assert.Contains(t, string(out), `"trades":[]`)
}

func TestFileStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)

	_, err = store.Load("dual_momentum")
	assert.ErrorIs(t, err, domain.ErrLedgerNotFound)

	l := New(25_000_000, time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save("dual_momentum", l))

	loaded, err := store.Load("dual_momentum")
	require.NoError(t, err)
	assert.Equal(t, int64(25_000_000), loaded.Cash)
	assert.Equal(t, int64(25_000_000), loaded.Seed)
	assert.Empty(t, loaded.Holdings)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "portfolio_dual_momentum.json", entries[0].Name())
}

func TestFileStore_CorruptFileIsPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "portfolio_broken.json"), []byte("{not json"), 0644))

	_, err = store.Load("broken")
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, WriteFileAtomic(path, []byte("old")))
	require.NoError(t, WriteFileAtomic(path, []byte("new")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	err = WriteFileAtomic(filepath.Join(t.TempDir(), "missing", "x.json"), []byte("x"))
	assert.Error(t, err)
}
