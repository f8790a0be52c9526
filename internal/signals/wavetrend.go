package signals

import (
	"math"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

// WaveTrendConfig configures the WaveTrend oscillator. Oversold thresholds of
// WT are negative; a zero value selects the default.
type WaveTrendConfig struct {
	ChannelLength  int     `json:"channel_length" toml:"channel_length" yaml:"channel_length"`
	AverageLength  int     `json:"average_length" toml:"average_length" yaml:"average_length"`
	SignalLength   int     `json:"signal_length" toml:"signal_length" yaml:"signal_length"`
	Overbought     float64 `json:"overbought" toml:"overbought" yaml:"overbought"`
	Oversold       float64 `json:"oversold" toml:"oversold" yaml:"oversold"`
	RSIPeriod      int     `json:"rsi_period" toml:"rsi_period" yaml:"rsi_period"`
	RSIOverbought  float64 `json:"rsi_overbought" toml:"rsi_overbought" yaml:"rsi_overbought"`
	RSIOversold    float64 `json:"rsi_oversold" toml:"rsi_oversold" yaml:"rsi_oversold"`
	MFIPeriod      int     `json:"mfi_period" toml:"mfi_period" yaml:"mfi_period"`
	MFIOverbought  float64 `json:"mfi_overbought" toml:"mfi_overbought" yaml:"mfi_overbought"`
	MFIOversold    float64 `json:"mfi_oversold" toml:"mfi_oversold" yaml:"mfi_oversold"`
	DiamondZone    float64 `json:"diamond_zone" toml:"diamond_zone" yaml:"diamond_zone"`
	DiamondRSIBull float64 `json:"diamond_rsi_bull" toml:"diamond_rsi_bull" yaml:"diamond_rsi_bull"`
	DiamondRSIBear float64 `json:"diamond_rsi_bear" toml:"diamond_rsi_bear" yaml:"diamond_rsi_bear"`
}

func DefaultWaveTrendConfig() WaveTrendConfig {
	return WaveTrendConfig{
		ChannelLength:  10,
		AverageLength:  21,
		SignalLength:   4,
		Overbought:     53,
		Oversold:       -53,
		RSIPeriod:      14,
		RSIOverbought:  70,
		RSIOversold:    30,
		MFIPeriod:      14,
		MFIOverbought:  80,
		MFIOversold:    20,
		DiamondZone:    40,
		DiamondRSIBull: 40,
		DiamondRSIBear: 60,
	}
}

func (c WaveTrendConfig) normalize() WaveTrendConfig {
	def := DefaultWaveTrendConfig()
	c.ChannelLength = intOr(c.ChannelLength, def.ChannelLength)
	c.AverageLength = intOr(c.AverageLength, def.AverageLength)
	c.SignalLength = intOr(c.SignalLength, def.SignalLength)
	c.Overbought = floatOr(c.Overbought, def.Overbought)
	if c.Oversold == 0 {
		c.Oversold = def.Oversold
	}
	c.Oversold = -math.Abs(c.Oversold)
	c.RSIPeriod = intOr(c.RSIPeriod, def.RSIPeriod)
	c.RSIOverbought = floatOr(c.RSIOverbought, def.RSIOverbought)
	c.RSIOversold = floatOr(c.RSIOversold, def.RSIOversold)
	c.MFIPeriod = intOr(c.MFIPeriod, def.MFIPeriod)
	c.MFIOverbought = floatOr(c.MFIOverbought, def.MFIOverbought)
	c.MFIOversold = floatOr(c.MFIOversold, def.MFIOversold)
	c.DiamondZone = floatOr(c.DiamondZone, def.DiamondZone)
	c.DiamondRSIBull = floatOr(c.DiamondRSIBull, def.DiamondRSIBull)
	c.DiamondRSIBear = floatOr(c.DiamondRSIBear, def.DiamondRSIBear)
	return c
}

const (
	WaveTrendDiamond = "diamond"
	WaveTrendFlag    = "flag"
)

type WaveTrendDetails struct {
	WT1     float64 `json:"wt1"`
	WT2     float64 `json:"wt2"`
	RSI     float64 `json:"rsi"`
	MFI     float64 `json:"mfi"`
	Kind    string  `json:"kind,omitempty"`
	Diamond bool    `json:"diamond"`
}

// WaveTrendGenerator emits diamonds (extended-zone WT crosses confirmed by
// RSI) and flags (WT, RSI and MFI all stretched the same way).
type WaveTrendGenerator struct {
	cfg WaveTrendConfig
}

func NewWaveTrendGenerator(cfg WaveTrendConfig) *WaveTrendGenerator {
	return &WaveTrendGenerator{cfg: cfg.normalize()}
}

func (g *WaveTrendGenerator) Name() Name { return WaveTrend }

func (g *WaveTrendGenerator) MinCandles() int {
	c := g.cfg
	return maxInt(2*c.ChannelLength+c.AverageLength+c.SignalLength, c.RSIPeriod+1, c.MFIPeriod+1)
}

func (g *WaveTrendGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(WaveTrend, candles)
	}
	c := g.cfg
	wt1, wt2 := WaveTrendLines(candles, c.ChannelLength, c.AverageLength, c.SignalLength)
	rsi := series.RSI(series.Closes(candles), c.RSIPeriod)
	mfi := series.MFI(candles, c.MFIPeriod)

	last := len(candles) - 1
	w1, ok1 := wt1[last].Get()
	w2, ok2 := wt2[last].Get()
	r, ok3 := rsi[last].Get()
	m, ok4 := mfi[last].Get()
	if !(ok1 && ok2 && ok3 && ok4) {
		return noSignal(WaveTrend, candles)
	}
	details := WaveTrendDetails{WT1: w1, WT2: w2, RSI: r, MFI: m}

	bullDiamond := series.CrossOver(wt1, wt2, last) && w1 < -c.DiamondZone && r < c.DiamondRSIBull
	bearDiamond := series.CrossUnder(wt1, wt2, last) && w1 > c.DiamondZone && r > c.DiamondRSIBear
	bullFlag := w1 < c.Oversold && w2 < c.Oversold && r < c.RSIOversold && m < c.MFIOversold
	bearFlag := w1 > c.Overbought && w2 > c.Overbought && r > c.RSIOverbought && m > c.MFIOverbought

	side := None
	switch {
	case bullDiamond:
		side, details.Kind, details.Diamond = Buy, WaveTrendDiamond, true
	case bearDiamond:
		side, details.Kind, details.Diamond = Sell, WaveTrendDiamond, true
	case bullFlag:
		side, details.Kind = Buy, WaveTrendFlag
	case bearFlag:
		side, details.Kind = Sell, WaveTrendFlag
	}
	return newSignal(WaveTrend, candles, side, details)
}

// WaveTrendLines returns WT1 (the smoothed channel index) and WT2 (its EMA).
// CI is undefined where the mean deviation is zero.
func WaveTrendLines(candles []market.Candle, channel, average, signal int) (wt1, wt2 series.Series) {
	ap := series.HLC3(candles)
	esa := series.EMA(ap, channel)
	dev := series.Sub(ap, esa)
	d := series.EMA(dev.Map(math.Abs), channel)
	ci := series.Zip(dev, d, func(x, y float64) (float64, bool) {
		if y == 0 {
			return 0, false
		}
		return x / (0.015 * y), true
	})
	wt1 = series.EMA(ci, average)
	wt2 = series.EMA(wt1, signal)
	return wt1, wt2
}
