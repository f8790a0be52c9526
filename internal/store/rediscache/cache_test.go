package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/convergence"
	"signalhub/internal/signals"
)

func TestCacheMissThenSet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, "test", 30*time.Second)
	ctx := context.Background()
	key := "test:result:BTCUSDT:1h:42"
	assert.Equal(t, key, c.Key("btcusdt", "1H", 42))

	mock.ExpectGet(key).RedisNil()
	_, ok, err := c.Get(ctx, "BTCUSDT", "1h", 42)
	require.NoError(t, err)
	assert.False(t, ok)

	res := convergence.Result{Signal: signals.Sell, ConfidencePercent: 62.5, Timestamp: 42}
	payload, err := json.Marshal(res)
	require.NoError(t, err)
	mock.ExpectSet(key, string(payload), 30*time.Second).SetVal("OK")
	require.NoError(t, c.Set(ctx, "BTCUSDT", "1h", 42, res))

	mock.ExpectGet(key).SetVal(string(payload))
	got, ok, err := c.Get(ctx, "BTCUSDT", "1h", 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, signals.Sell, got.Signal)
	assert.Equal(t, 62.5, got.ConfidencePercent)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := New(db, "", 0)
	ctx := context.Background()

	mock.ExpectGet("signalhub:result:ETHUSDT:4h:7").SetErr(errors.New("connection refused"))
	_, ok, err := c.Get(ctx, "ETHUSDT", "4h", 7)
	assert.Error(t, err)
	assert.False(t, ok)

	mock.ExpectGet("signalhub:result:ETHUSDT:4h:8").SetVal("{not json")
	_, _, err = c.Get(ctx, "ETHUSDT", "4h", 8)
	assert.ErrorContains(t, err, "decode cached result")

	require.NoError(t, mock.ExpectationsWereMet())
}
