package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/convergence"
	"signalhub/internal/signals"
	"signalhub/internal/store"
)

func openMemory(t *testing.T) *SignalLogStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func result(ts int64, side signals.Side, confidence float64) convergence.Result {
	res := convergence.Result{
		Signal:            side,
		ConfidencePercent: confidence,
		BuyScore:          3.5,
		Timestamp:         ts,
		Close:             101.5,
		PerIndicatorSignals: []signals.IndicatorSignal{
			{Indicator: signals.Whale, Signal: side, Timestamp: ts},
		},
	}
	if side != signals.None {
		res.ContributingIndicators = []signals.Name{signals.Whale, signals.TrendADX}
	}
	return res
}

func TestSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	_, err := s.Latest(ctx, "BTCUSDT", "1h")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Save(ctx, "btcusdt", "1H", result(1000, signals.None, 0))
	require.NoError(t, err)
	res := result(2000, signals.Buy, 43.75)
	res.Conflicts = []string{"whale distribution contradicts BUY"}
	res.Failures = map[signals.Name]string{signals.Divergence: "boom"}
	id, err := s.Save(ctx, "BTCUSDT", "1h", res)
	require.NoError(t, err)
	assert.Positive(t, id)

	rec, err := s.Latest(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "BUY", rec.Signal)
	assert.Equal(t, 43.75, rec.Confidence)
	require.NotNil(t, rec.Close)
	assert.Equal(t, 101.5, *rec.Close)
	assert.Equal(t, []string{"whale", "trend_adx"}, rec.Contributing)
	assert.Equal(t, res.Conflicts, rec.Conflicts)
	assert.Equal(t, "boom", rec.Failures["divergence"])
	assert.Equal(t, signals.Buy, rec.Result.Signal)
	require.Len(t, rec.Result.PerIndicatorSignals, 1)
}

func TestSaveOverwritesSameCandle(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	first, err := s.Save(ctx, "ETHUSDT", "4h", result(5000, signals.None, 0))
	require.NoError(t, err)
	second, err := s.Save(ctx, "ETHUSDT", "4h", result(5000, signals.Sell, 50))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	recs, err := s.List(ctx, "ETHUSDT", "4h", 10, false)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "SELL", recs[0].Signal)
}

func TestListFiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	for i, side := range []signals.Side{signals.Buy, signals.None, signals.Sell, signals.None} {
		_, err := s.Save(ctx, "SOLUSDT", "1h", result(int64(i+1)*1000, side, 40))
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, "SOLUSDT", "15m", result(9000, signals.Buy, 40))
	require.NoError(t, err)

	all, err := s.List(ctx, "SOLUSDT", "", 0, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, int64(9000), all[0].CandleTime)

	active, err := s.List(ctx, "solusdt", "1h", 10, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "SELL", active[0].Signal)
	assert.Nil(t, active[0].Failures)

	counts, err := s.CountBySignal(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"BUY": 2, "SELL": 1, "NONE": 2}, counts)
}

func TestClosedStoreErrors(t *testing.T) {
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Save(context.Background(), "BTCUSDT", "1h", result(1, signals.None, 0))
	assert.Error(t, err)
}
