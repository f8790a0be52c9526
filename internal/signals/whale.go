package signals

import (
	"math"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

type WhaleConfig struct {
	VolumeWindow     int     `json:"volume_window" toml:"volume_window" yaml:"volume_window"`
	VolumeMultiplier float64 `json:"volume_multiplier" toml:"volume_multiplier" yaml:"volume_multiplier"`
	MinVolumeRatio   float64 `json:"min_volume_ratio" toml:"min_volume_ratio" yaml:"min_volume_ratio"`
	VWAPWindow       int     `json:"vwap_window" toml:"vwap_window" yaml:"vwap_window"`
	// PriceChangeThreshold is in percent of the open.
	PriceChangeThreshold float64 `json:"price_change_threshold" toml:"price_change_threshold" yaml:"price_change_threshold"`
	BodyRatioThreshold   float64 `json:"body_ratio_threshold" toml:"body_ratio_threshold" yaml:"body_ratio_threshold"`
}

func DefaultWhaleConfig() WhaleConfig {
	return WhaleConfig{
		VolumeWindow:         20,
		VolumeMultiplier:     2.5,
		MinVolumeRatio:       2.0,
		VWAPWindow:           20,
		PriceChangeThreshold: 0.5,
		BodyRatioThreshold:   0.6,
	}
}

func (c WhaleConfig) normalize() WhaleConfig {
	def := DefaultWhaleConfig()
	c.VolumeWindow = intOr(c.VolumeWindow, def.VolumeWindow)
	c.VolumeMultiplier = floatOr(c.VolumeMultiplier, def.VolumeMultiplier)
	c.MinVolumeRatio = floatOr(c.MinVolumeRatio, def.MinVolumeRatio)
	c.VWAPWindow = intOr(c.VWAPWindow, def.VWAPWindow)
	c.PriceChangeThreshold = floatOr(c.PriceChangeThreshold, def.PriceChangeThreshold)
	c.BodyRatioThreshold = floatOr(c.BodyRatioThreshold, def.BodyRatioThreshold)
	return c
}

const (
	WhaleAccumulation = "accumulation"
	WhaleDistribution = "distribution"
)

type WhaleDetails struct {
	Volume             float64             `json:"volume"`
	VolumeAverage      float64             `json:"volume_average"`
	VolumeStdDev       float64             `json:"volume_stddev"`
	VolumeRatio        float64             `json:"volume_ratio"`
	Anomaly            bool                `json:"anomaly"`
	VWAP               float64             `json:"vwap"`
	PriceChangePercent float64             `json:"price_change_percent"`
	BodyRatio          float64             `json:"body_ratio"`
	Activity           string              `json:"activity,omitempty"`
	Flow               *market.FlowMetrics `json:"flow,omitempty"`
}

// WhaleGenerator flags a single oversized-volume candle that moves price
// decisively away from VWAP.
type WhaleGenerator struct {
	cfg WhaleConfig
}

func NewWhaleGenerator(cfg WhaleConfig) *WhaleGenerator {
	return &WhaleGenerator{cfg: cfg.normalize()}
}

func (g *WhaleGenerator) Name() Name { return Whale }

func (g *WhaleGenerator) MinCandles() int {
	return maxInt(g.cfg.VolumeWindow, g.cfg.VWAPWindow) + 1
}

func (g *WhaleGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(Whale, candles)
	}
	c := g.cfg
	last := len(candles) - 1
	cur := candles[last]

	// the baseline excludes the bar under test so a spike cannot inflate
	// its own threshold.
	volumes := series.Volumes(candles[:last])
	avg, ok1 := series.SMA(volumes, c.VolumeWindow).Last().Get()
	std, ok2 := series.StdDev(volumes, c.VolumeWindow).Last().Get()
	vwap, ok3 := series.VWAP(candles, c.VWAPWindow).Last().Get()
	if !(ok1 && ok2 && ok3) {
		return noSignal(Whale, candles)
	}

	details := WhaleDetails{
		Volume:        cur.Volume,
		VolumeAverage: avg,
		VolumeStdDev:  std,
		VWAP:          vwap,
	}
	if avg > 0 {
		details.VolumeRatio = cur.Volume / avg
	}
	details.Anomaly = cur.Volume > avg+c.VolumeMultiplier*std && cur.Volume > avg*c.MinVolumeRatio
	if cur.Open != 0 {
		details.PriceChangePercent = (cur.Close - cur.Open) / cur.Open * 100
	}
	if r := cur.Range(); r > 0 {
		details.BodyRatio = math.Abs(cur.Body()) / r
	}
	if flow, ok := market.ComputeFlow(candles, c.VolumeWindow); ok {
		details.Flow = &flow
	}

	decisive := details.Anomaly &&
		math.Abs(details.PriceChangePercent) >= c.PriceChangeThreshold &&
		details.BodyRatio >= c.BodyRatioThreshold

	side := None
	switch {
	case decisive && cur.Bullish() && details.PriceChangePercent > 0 && cur.Close > vwap:
		side, details.Activity = Buy, WhaleAccumulation
	case decisive && cur.Bearish() && details.PriceChangePercent < 0 && cur.Close < vwap:
		side, details.Activity = Sell, WhaleDistribution
	}
	return newSignal(Whale, candles, side, details)
}
