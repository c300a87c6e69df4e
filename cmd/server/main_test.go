package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "run", "analyze", "buy", "stoploss", "report", "reset", "ledger"} {
		assert.Contains(t, names, want)
	}
}

func TestLedgerCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range ledgerCmd(&app{}).Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"status", "buy", "sell", "history"}, names)
}

func TestLedgerOrderCmd_RejectsBadShares(t *testing.T) {
	for _, args := range [][]string{
		{"ledger", "buy", "dual_momentum", "069500", "0"},
		{"ledger", "sell", "dual_momentum", "069500", "ten"},
	} {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)

		err := root.Execute()
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidOrder), args)
	}
}

func TestFormatTrade(t *testing.T) {
	profit, rate := 800.0, 20.0
	line := formatTrade(domain.Trade{
		Type:       domain.TradeTypeSell,
		Ticker:     "069500",
		Name:       "KODEX 200",
		Shares:     4,
		Price:      1200,
		Amount:     4800,
		Date:       domain.NewTimestamp(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
		Profit:     &profit,
		ProfitRate: &rate,
		Reason:     domain.ReasonManual,
	})

	assert.Contains(t, line, "2026-03-02 10:00")
	assert.Contains(t, line, "4,800")
	assert.Contains(t, line, "+800 (+20.00%)")
	assert.Contains(t, line, "MANUAL")
}

func TestResetCmd_RequiresConfirmation(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"reset", "dual_momentum"})

	err := root.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrResetNotConfirmed))
}

func TestResetCmd_RequiresStrategyID(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"reset", "--yes"})

	assert.Error(t, root.Execute())
}
