package signals

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

type TrendConfig struct {
	ADXPeriod      int     `json:"adx_period" toml:"adx_period" yaml:"adx_period"`
	ADXThreshold   float64 `json:"adx_threshold" toml:"adx_threshold" yaml:"adx_threshold"`
	MomentumPeriod int     `json:"momentum_period" toml:"momentum_period" yaml:"momentum_period"`
	PivotLeft      int     `json:"pivot_left" toml:"pivot_left" yaml:"pivot_left"`
	PivotRight     int     `json:"pivot_right" toml:"pivot_right" yaml:"pivot_right"`
}

func DefaultTrendConfig() TrendConfig {
	return TrendConfig{ADXPeriod: 14, ADXThreshold: 25, MomentumPeriod: 10, PivotLeft: 5, PivotRight: 2}
}

func (c TrendConfig) normalize() TrendConfig {
	def := DefaultTrendConfig()
	c.ADXPeriod = intOr(c.ADXPeriod, def.ADXPeriod)
	c.ADXThreshold = floatOr(c.ADXThreshold, def.ADXThreshold)
	c.MomentumPeriod = intOr(c.MomentumPeriod, def.MomentumPeriod)
	c.PivotLeft = intOr(c.PivotLeft, def.PivotLeft)
	c.PivotRight = intOr(c.PivotRight, def.PivotRight)
	return c
}

type TrendDetails struct {
	ADX        float64 `json:"adx"`
	PlusDI     float64 `json:"plus_di"`
	MinusDI    float64 `json:"minus_di"`
	Momentum   float64 `json:"momentum"`
	PivotLow   bool    `json:"pivot_low"`
	PivotHigh  bool    `json:"pivot_high"`
	PivotIndex int     `json:"pivot_index"`
}

// TrendGenerator requires a strong trend (ADX), a dominant directional
// index, momentum in the same direction and a freshly confirmed pivot, all on
// the same bar.
type TrendGenerator struct {
	cfg TrendConfig
}

func NewTrendGenerator(cfg TrendConfig) *TrendGenerator {
	return &TrendGenerator{cfg: cfg.normalize()}
}

func (g *TrendGenerator) Name() Name { return TrendADX }

func (g *TrendGenerator) MinCandles() int {
	c := g.cfg
	return maxInt(2*c.ADXPeriod+1, c.MomentumPeriod+1, c.PivotLeft+c.PivotRight+1)
}

func (g *TrendGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(TrendADX, candles)
	}
	c := g.cfg
	dmi := DirectionalMovement(candles, c.ADXPeriod)
	momentum := series.ROC(series.Closes(candles), c.MomentumPeriod)

	last := len(candles) - 1
	adx, ok1 := dmi.ADX[last].Get()
	plus, ok2 := dmi.PlusDI[last].Get()
	minus, ok3 := dmi.MinusDI[last].Get()
	mom, ok4 := momentum[last].Get()
	if !(ok1 && ok2 && ok3 && ok4) {
		return noSignal(TrendADX, candles)
	}

	// a pivot needs PivotRight bars of confirmation, so the newest
	// possible pivot sits PivotRight bars back.
	pivotIdx := last - c.PivotRight
	lows := series.Of(market.Lows(candles))
	highs := series.Of(market.Highs(candles))
	details := TrendDetails{
		ADX:        adx,
		PlusDI:     plus,
		MinusDI:    minus,
		Momentum:   mom,
		PivotLow:   series.IsPivotLow(lows, pivotIdx, c.PivotLeft, c.PivotRight),
		PivotHigh:  series.IsPivotHigh(highs, pivotIdx, c.PivotLeft, c.PivotRight),
		PivotIndex: pivotIdx,
	}

	side := None
	strong := adx > c.ADXThreshold
	switch {
	case strong && plus > minus && mom > 0 && details.PivotLow:
		side = Buy
	case strong && minus > plus && mom < 0 && details.PivotHigh:
		side = Sell
	}
	return newSignal(TrendADX, candles, side, details)
}

type DMI struct {
	PlusDI  series.Series
	MinusDI series.Series
	DX      series.Series
	ADX     series.Series
}

// DirectionalMovement computes +DI, -DI and ADX with talib. DX is derived
// from the DI lines and is 0 when both are 0.
func DirectionalMovement(candles []market.Candle, p int) DMI {
	n := len(candles)
	out := DMI{PlusDI: series.New(n), MinusDI: series.New(n), DX: series.New(n), ADX: series.New(n)}
	if p <= 1 || n <= p {
		return out
	}
	highs, lows, closes := market.Highs(candles), market.Lows(candles), market.Closes(candles)
	out.PlusDI = diSeries(talib.PlusDI(highs, lows, closes, p), p)
	out.MinusDI = diSeries(talib.MinusDI(highs, lows, closes, p), p)
	out.DX = series.Zip(out.PlusDI, out.MinusDI, func(a, b float64) (float64, bool) {
		if a+b == 0 {
			return 0, true
		}
		return 100 * math.Abs(a-b) / (a + b), true
	})
	if n >= 2*p {
		out.ADX = diSeries(talib.Adx(highs, lows, closes, p), 2*p-1)
	}
	return out
}

func diSeries(values []float64, lookback int) series.Series {
	out := series.New(len(values))
	for i := lookback; i < len(values); i++ {
		out[i] = series.Some(values[i])
	}
	return out
}
