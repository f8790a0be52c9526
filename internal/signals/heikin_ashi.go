package signals

import (
	"math"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

type HeikinAshiConfig struct {
	// Length is the EMA length of every smoothing stage.
	Length int `json:"length" toml:"length" yaml:"length"`
}

func DefaultHeikinAshiConfig() HeikinAshiConfig { return HeikinAshiConfig{Length: 55} }

func (c HeikinAshiConfig) normalize() HeikinAshiConfig {
	c.Length = intOr(c.Length, 55)
	return c
}

type HeikinAshiDetails struct {
	Mavi        float64 `json:"mavi"`
	Kirmizi     float64 `json:"kirmizi"`
	PrevMavi    float64 `json:"prev_mavi"`
	PrevKirmizi float64 `json:"prev_kirmizi"`
	HAClose     float64 `json:"ha_close"`
}

// HeikinAshiGenerator crosses a zero-lag TMA of the typical price (mavi)
// with a zero-lag TMA of the Heikin-Ashi close (kirmizi).
type HeikinAshiGenerator struct {
	cfg HeikinAshiConfig
}

func NewHeikinAshiGenerator(cfg HeikinAshiConfig) *HeikinAshiGenerator {
	return &HeikinAshiGenerator{cfg: cfg.normalize()}
}

func (g *HeikinAshiGenerator) Name() Name { return HeikinAshi }

// MinCandles covers the six chained EMA stages.
func (g *HeikinAshiGenerator) MinCandles() int { return 6 * g.cfg.Length }

func (g *HeikinAshiGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(HeikinAshi, candles)
	}
	p := g.cfg.Length
	haClose := HeikinAshiClose(candles)
	mavi := zeroLagTMA(series.HLC3(candles), p)
	kirmizi := zeroLagTMA(haClose, p)

	last := len(candles) - 1
	m0, ok0 := mavi[last].Get()
	k0, ok1 := kirmizi[last].Get()
	m1, ok2 := mavi[last-1].Get()
	k1, ok3 := kirmizi[last-1].Get()
	if !(ok0 && ok1 && ok2 && ok3) {
		return noSignal(HeikinAshi, candles)
	}
	details := HeikinAshiDetails{
		Mavi:        m0,
		Kirmizi:     k0,
		PrevMavi:    m1,
		PrevKirmizi: k1,
		HAClose:     haClose[last].Or(0),
	}
	side := None
	switch {
	case series.CrossOver(mavi, kirmizi, last):
		side = Buy
	case series.CrossUnder(mavi, kirmizi, last):
		side = Sell
	}
	return newSignal(HeikinAshi, candles, side, details)
}

func HeikinAshiClose(candles []market.Candle) series.Series {
	out := series.New(len(candles))
	ohlc4 := series.OHLC4(candles)
	var haOpen float64
	for i, c := range candles {
		cur := ohlc4[i].Or(0)
		if i == 0 {
			haOpen = cur
		} else {
			haOpen = (ohlc4[i-1].Or(0) + haOpen) / 2
		}
		out[i] = series.Some((cur + haOpen + math.Max(c.High, haOpen) + math.Min(c.Low, haOpen)) / 4)
	}
	return out
}

// tma is 3·EMA1 − 3·EMA2 + EMA3 with each stage an EMA of the previous one.
func tma(src series.Series, p int) series.Series {
	e1 := series.EMA(src, p)
	e2 := series.EMA(e1, p)
	e3 := series.EMA(e2, p)
	return series.Add(series.Sub(series.Scale(e1, 3), series.Scale(e2, 3)), e3)
}

// zeroLagTMA removes the lag of a TMA by doubling it and subtracting the TMA
// of itself.
func zeroLagTMA(src series.Series, p int) series.Series {
	t1 := tma(src, p)
	t2 := tma(t1, p)
	return series.Sub(series.Scale(t1, 2), t2)
}
