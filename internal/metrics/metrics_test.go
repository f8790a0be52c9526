package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAndServe(t *testing.T) {
	m := New()
	m.ObserveEvaluation("BUY", 3*time.Millisecond)
	m.ObserveEvaluation("BUY", time.Millisecond)
	m.ObserveIndicator("whale", "SELL")
	m.ObserveFailure("divergence")
	m.ObserveCache(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeneratorFailures.WithLabelValues("divergence")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `signalhub_indicator_signals_total{indicator="whale",signal="SELL"} 1`)
	assert.Contains(t, rec.Body.String(), `signalhub_cache_lookups_total{outcome="hit"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveEvaluation("NONE", time.Second)
		m.ObserveSource("binance", nil)
		m.ObserveBacktest("done")
	})
}
