package signals

import (
	"math"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

type KoncordeConfig struct {
	VolumeEMALength     int     `json:"volume_ema_length" toml:"volume_ema_length" yaml:"volume_ema_length"`
	MFIPeriod           int     `json:"mfi_period" toml:"mfi_period" yaml:"mfi_period"`
	MFIOversold         float64 `json:"mfi_oversold" toml:"mfi_oversold" yaml:"mfi_oversold"`
	MFIOverbought       float64 `json:"mfi_overbought" toml:"mfi_overbought" yaml:"mfi_overbought"`
	BBPeriod            int     `json:"bb_period" toml:"bb_period" yaml:"bb_period"`
	BBMultiplier        float64 `json:"bb_multiplier" toml:"bb_multiplier" yaml:"bb_multiplier"`
	OscillatorThreshold float64 `json:"oscillator_threshold" toml:"oscillator_threshold" yaml:"oscillator_threshold"`
}

func DefaultKoncordeConfig() KoncordeConfig {
	return KoncordeConfig{
		VolumeEMALength:     255,
		MFIPeriod:           14,
		MFIOversold:         20,
		MFIOverbought:       80,
		BBPeriod:            25,
		BBMultiplier:        2,
		OscillatorThreshold: 50,
	}
}

func (c KoncordeConfig) normalize() KoncordeConfig {
	def := DefaultKoncordeConfig()
	c.VolumeEMALength = intOr(c.VolumeEMALength, def.VolumeEMALength)
	c.MFIPeriod = intOr(c.MFIPeriod, def.MFIPeriod)
	c.MFIOversold = floatOr(c.MFIOversold, def.MFIOversold)
	c.MFIOverbought = floatOr(c.MFIOverbought, def.MFIOverbought)
	c.BBPeriod = intOr(c.BBPeriod, def.BBPeriod)
	c.BBMultiplier = floatOr(c.BBMultiplier, def.BBMultiplier)
	c.OscillatorThreshold = floatOr(c.OscillatorThreshold, def.OscillatorThreshold)
	return c
}

type KoncordeDetails struct {
	PVI          float64 `json:"pvi"`
	NVI          float64 `json:"nvi"`
	PVIEMA       float64 `json:"pvi_ema"`
	NVIEMA       float64 `json:"nvi_ema"`
	Strength     float64 `json:"strength"`
	MFI          float64 `json:"mfi"`
	Oscillator   float64 `json:"oscillator"`
	PVICrossUp   bool    `json:"pvi_cross_up"`
	PVICrossDown bool    `json:"pvi_cross_down"`
}

// KoncordeGenerator needs the volume indices, money flow and the Bollinger
// oscillator to agree.
type KoncordeGenerator struct {
	cfg KoncordeConfig
}

func NewKoncordeGenerator(cfg KoncordeConfig) *KoncordeGenerator {
	return &KoncordeGenerator{cfg: cfg.normalize()}
}

func (g *KoncordeGenerator) Name() Name { return Koncorde }

func (g *KoncordeGenerator) MinCandles() int {
	c := g.cfg
	return maxInt(c.VolumeEMALength+1, c.BBPeriod+1, c.MFIPeriod+2)
}

func (g *KoncordeGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(Koncorde, candles)
	}
	c := g.cfg
	pvi, nvi := VolumeIndices(candles)
	pviEMA := series.EMA(pvi, c.VolumeEMALength)
	nviEMA := series.EMA(nvi, c.VolumeEMALength)
	mfi := series.MFI(candles, c.MFIPeriod)
	osc := BollingerOscillator(series.Closes(candles), c.BBPeriod, c.BBMultiplier)

	last := len(candles) - 1
	pe, ok1 := pviEMA[last].Get()
	ne, ok2 := nviEMA[last].Get()
	m, ok3 := mfi[last].Get()
	o, ok4 := osc[last].Get()
	if !(ok1 && ok2 && ok3 && ok4) {
		return noSignal(Koncorde, candles)
	}
	p := pvi[last].Or(0)
	nv := nvi[last].Or(0)
	details := KoncordeDetails{
		PVI:          p,
		NVI:          nv,
		PVIEMA:       pe,
		NVIEMA:       ne,
		Strength:     (p - pe) - (nv - ne),
		MFI:          m,
		Oscillator:   o,
		PVICrossUp:   series.CrossOver(pvi, nvi, last),
		PVICrossDown: series.CrossUnder(pvi, nvi, last),
	}

	side := None
	switch {
	case (details.PVICrossUp || details.Strength > 0) && m < c.MFIOversold && o < -c.OscillatorThreshold:
		side = Buy
	case (details.PVICrossDown || details.Strength < 0) && m > c.MFIOverbought && o > c.OscillatorThreshold:
		side = Sell
	}
	return newSignal(Koncorde, candles, side, details)
}

// VolumeIndices are seeded at 1000.
func VolumeIndices(candles []market.Candle) (pvi, nvi series.Series) {
	n := len(candles)
	pvi = series.New(n)
	nvi = series.New(n)
	if n == 0 {
		return pvi, nvi
	}
	p, v := 1000.0, 1000.0
	pvi[0] = series.Some(p)
	nvi[0] = series.Some(v)
	for i := 1; i < n; i++ {
		prev := candles[i-1]
		cur := candles[i]
		ratio := 0.0
		if prev.Close != 0 {
			ratio = (cur.Close - prev.Close) / prev.Close
		}
		switch {
		case cur.Volume > prev.Volume:
			p *= 1 + ratio
		case cur.Volume < prev.Volume:
			v *= 1 + ratio
		}
		pvi[i] = series.Some(p)
		nvi[i] = series.Some(v)
	}
	return pvi, nvi
}

// BollingerOscillator places price inside its bands: -100 at the lower band,
// +100 at the upper band, clamped, and 0 when the bands collapse.
func BollingerOscillator(src series.Series, period int, mult float64) series.Series {
	bands := series.Bollinger(src, period, mult)
	half := series.Zip(bands.Upper, bands.Lower, func(u, l float64) (float64, bool) {
		return (u - l) / 2, true
	})
	diff := series.Sub(src, bands.Middle)
	return series.Zip(diff, half, func(d, h float64) (float64, bool) {
		if h == 0 {
			return 0, true
		}
		return math.Max(-100, math.Min(100, d/h*100)), true
	})
}
