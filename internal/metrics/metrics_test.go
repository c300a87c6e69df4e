package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveAndExpose(t *testing.T) {
	r := NewRegistry()

	r.ObserveGatewayCall("daily_bars", time.Now(), nil)
	r.ObserveGatewayCall("daily_bars", time.Now(), errors.New("timeout"))
	r.ObserveAction("buy", time.Now(), errors.New("partial"))
	r.Trades.WithLabelValues("dual_momentum", "BUY").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.GatewayCalls.WithLabelValues("daily_bars", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GatewayCalls.WithLabelValues("daily_bars", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ActionErrors.WithLabelValues("buy")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `papertrader_trades_total{side="BUY",strategy="dual_momentum"} 1`)
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveGatewayCall("x", time.Now(), nil)
		r.ObserveAction("x", time.Now(), nil)
	})
}
