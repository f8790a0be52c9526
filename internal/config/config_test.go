package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/signals"
)

func TestLoadYAMLFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalhub.yaml")
	content := `
server:
  addr: ":9090"
binance:
  history_limit: 800
engine:
  signals:
    heikin_ashi:
      length: 34
    whale:
      volume_multiplier: 3
  convergence:
    threshold: 4
    weights:
      whale: 2.5
watchlist:
  - symbol: ETHUSDT
    interval: 4h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 800, cfg.Binance.HistoryLimit)
	assert.Equal(t, 1200, cfg.Binance.RateLimitPerMin)
	assert.Equal(t, 34, cfg.Engine.Signals.HeikinAshi.Length)
	assert.Equal(t, 3.0, cfg.Engine.Signals.Whale.VolumeMultiplier)
	assert.Equal(t, 20, cfg.Engine.Signals.Whale.VolumeWindow)
	assert.Equal(t, 4.0, cfg.Engine.Convergence.Threshold)
	assert.Equal(t, 2.5, cfg.Engine.Convergence.Weights[signals.Whale])
	assert.Equal(t, 1.5, cfg.Engine.Convergence.Weights[signals.Divergence])
	assert.Equal(t, []WatchEntry{{Symbol: "ETHUSDT", Interval: "4h"}}, cfg.Watchlist)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, time.Minute, cfg.Redis.TTL())
}

func TestLoadPartialKeepsZeroDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalhub.yaml")
	content := `
server:
  addr: ":9090"
engine:
  convergence:
    divergence_bonus: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Engine.Signals.Divergence.Tolerance)
	require.NotNil(t, cfg.Engine.Convergence.DivergenceBonus)
	assert.Equal(t, 0.0, *cfg.Engine.Convergence.DivergenceBonus)
	require.NotNil(t, cfg.Engine.Convergence.DiamondBonus)
	assert.Equal(t, 0.5, *cfg.Engine.Convergence.DiamondBonus)
}

func TestWriteDefaultTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalhub.toml")
	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path), "existing file must not be overwritten")

	cfg, err := Load(path)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Engine.Signals, cfg.Engine.Signals)
	assert.Equal(t, def.Engine.Convergence.Threshold, cfg.Engine.Convergence.Threshold)
	assert.Equal(t, def.Watchlist, cfg.Watchlist)

	src := cfg.Binance.Source()
	assert.Equal(t, 15*time.Second, src.HTTPTimeout)
	assert.Equal(t, uint32(5), src.BreakerFailures)
}

func TestWatchlistUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signalhub.yaml")
	require.NoError(t, WriteDefault(path))
	w := NewWriter(path)

	require.NoError(t, w.UpdateWatch(WatchEntry{Symbol: "solusdt", Interval: "15M"}))
	require.NoError(t, w.UpdateWatch(WatchEntry{Symbol: "SOLUSDT", Interval: "15m"}))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Watchlist, 2)
	assert.Equal(t, WatchEntry{Symbol: "SOLUSDT", Interval: "15m"}, cfg.Watchlist[1])

	require.NoError(t, w.RemoveWatch("BTCUSDT", "1h"))
	assert.Error(t, w.RemoveWatch("BTCUSDT", "1h"))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Watchlist, 1)

	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups)
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signalhub.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestNormalizeWatchlist(t *testing.T) {
	out, err := NormalizeWatchlist([]WatchEntry{
		{Symbol: " btcusdt", Interval: "1H"},
		{Symbol: "BTCUSDT", Interval: "1h"},
		{Symbol: "ethusdt", Interval: "4h"},
	})
	require.NoError(t, err)
	assert.Equal(t, []WatchEntry{{Symbol: "BTCUSDT", Interval: "1h"}, {Symbol: "ETHUSDT", Interval: "4h"}}, out)

	_, err = NormalizeWatchlist([]WatchEntry{{Symbol: "BTCUSDT"}})
	assert.ErrorContains(t, err, "watchlist[0]")
}
