package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/market"
)

func candle(openTime int64, close float64) market.Candle {
	return market.Candle{OpenTime: openTime, Open: close, High: close, Low: close, Close: close}
}

func TestMemoryCandleStorePutMergesAndTrims(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	require.NoError(t, s.Put(ctx, "btcusdt", "1H", []market.Candle{candle(1, 10), candle(2, 11), candle(4, 13)}, 10))
	// in-progress update of the last bar, a late bar, and a new one
	require.NoError(t, s.Put(ctx, "BTCUSDT", "1h", []market.Candle{candle(4, 14), candle(3, 12), candle(5, 15)}, 4))

	got, err := s.Get(ctx, "BTCUSDT", "1h")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []int64{2, 3, 4, 5}, []int64{got[0].OpenTime, got[1].OpenTime, got[2].OpenTime, got[3].OpenTime})
	assert.Equal(t, 14.0, got[2].Close)
	assert.Equal(t, []string{"BTCUSDT@1h"}, s.Keys())
}

func TestMemoryCandleStoreWindowAndReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCandleStore()

	_, err := s.Window(ctx, "ETHUSDT", "4h", 2)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Replace(ctx, "ETHUSDT", "4h", []market.Candle{candle(3, 3), candle(1, 1), candle(2, 2)}))
	win, err := s.Window(ctx, "ETHUSDT", "4h", 2)
	require.NoError(t, err)
	require.Len(t, win, 2)
	assert.Equal(t, int64(2), win[0].OpenTime)

	win[0].Close = 99
	all, _ := s.Get(ctx, "ETHUSDT", "4h")
	assert.Equal(t, 2.0, all[1].Close, "window must be a copy")

	all, _ = s.Window(ctx, "ETHUSDT", "4h", 0)
	assert.Len(t, all, 3)

	assert.Error(t, s.Put(ctx, "", "1h", []market.Candle{candle(1, 1)}, 0))
}
