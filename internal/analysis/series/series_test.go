package series

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/market"
)

func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7) - 0.25*float64(i%5)
	}
	return out
}

func candlesFrom(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = market.Candle{
			OpenTime: int64(i) * 3_600_000,
			Open:     open,
			High:     math.Max(open, c) + 0.5,
			Low:      math.Min(open, c) - 0.5,
			Close:    c,
			Volume:   1000 + float64(i%11)*37,
		}
	}
	return out
}

func assertMatchesReference(t *testing.T, got Series, want []float64, from int) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		v, ok := got[i].Get()
		if i < from {
			assert.False(t, ok, "index %d should be undefined", i)
			continue
		}
		require.True(t, ok, "index %d should be defined", i)
		assert.InDelta(t, want[i], v, 1e-6, "index %d", i)
	}
}

func TestShortInputIsUndefined(t *testing.T) {
	src := Of([]float64{1, 2, 3, 4})
	candles := candlesFrom([]float64{1, 2, 3, 4})
	for name, s := range map[string]Series{
		"sma":       SMA(src, 5),
		"ema":       EMA(src, 5),
		"wma":       WMA(src, 5),
		"wilder":    Wilder(src, 5),
		"rsi":       RSI(src, 5),
		"stddev":    StdDev(src, 5),
		"roc":       ROC(src, 5),
		"atr":       ATR(candles, 5),
		"mfi":       MFI(candles, 5),
		"vwap":      VWAP(candles, 5),
		"bollinger": Bollinger(src, 5, 2).Upper,
	} {
		assert.Len(t, s, 4, name)
		assert.Equal(t, 0, s.ValidCount(), name)
	}
}

func TestEMASeedEqualsSMA(t *testing.T) {
	src := Of([]float64{2, 4, 6, 8, 10, 12})
	ema := EMA(src, 3)
	sma := SMA(src, 3)
	assert.False(t, ema[1].Valid())
	assert.Equal(t, sma[2], ema[2])
	v, _ := ema[3].Get()
	assert.InDelta(t, (8-4)*0.5+4, v, 1e-12)
}

func TestEMAChainsOverLeadingGap(t *testing.T) {
	src := Of(zigzag(40))
	first := EMA(src, 5)
	second := EMA(first, 5)
	assert.Equal(t, 4, first.FirstValid())
	assert.Equal(t, 8, second.FirstValid())
}

func TestAgainstTalib(t *testing.T) {
	raw := zigzag(120)
	src := Of(raw)
	candles := candlesFrom(raw)

	assertMatchesReference(t, SMA(src, 10), talib.Sma(raw, 10), 9)
	assertMatchesReference(t, EMA(src, 10), talib.Ema(raw, 10), 9)
	assertMatchesReference(t, RSI(src, 14), talib.Rsi(raw, 14), 14)
	assertMatchesReference(t, ATR(candles, 14),
		talib.Atr(market.Highs(candles), market.Lows(candles), market.Closes(candles), 14), 14)
}

func TestRSIMonotonicIsHundred(t *testing.T) {
	raw := make([]float64, 40)
	for i := range raw {
		raw[i] = 10 + float64(i)*1.5
	}
	rsi := RSI(Of(raw), 14)
	for i := 14; i < len(raw); i++ {
		v, ok := rsi[i].Get()
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	}
}

func TestMFIWithoutNegativeFlow(t *testing.T) {
	raw := make([]float64, 30)
	for i := range raw {
		raw[i] = 50 + float64(i)
	}
	mfi := MFI(candlesFrom(raw), 14)
	v, ok := mfi.Last().Get()
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestWMAWeightsNewestHeaviest(t *testing.T) {
	wma := WMA(Of([]float64{1, 2, 3}), 3)
	v, ok := wma[2].Get()
	require.True(t, ok)
	assert.InDelta(t, (1*1+2*2+3*3)/6.0, v, 1e-12)
}

func TestBollingerPopulationDeviation(t *testing.T) {
	b := Bollinger(Of([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 8, 2)
	mid, _ := b.Middle.Last().Get()
	dev, _ := b.Dev.Last().Get()
	up, _ := b.Upper.Last().Get()
	assert.InDelta(t, 5.0, mid, 1e-12)
	assert.InDelta(t, 2.0, dev, 1e-12)
	assert.InDelta(t, 9.0, up, 1e-12)
}

func TestROCZeroBaseUndefined(t *testing.T) {
	roc := ROC(Of([]float64{0, 5, 10}), 1)
	assert.False(t, roc[1].Valid())
	v, _ := roc[2].Get()
	assert.InDelta(t, 100.0, v, 1e-12)
}

func TestVWAPWithoutVolume(t *testing.T) {
	candles := candlesFrom([]float64{1, 2, 3})
	for i := range candles {
		candles[i].Volume = 0
	}
	assert.Equal(t, 0, VWAP(candles, 2).ValidCount())
}

func TestSomeRejectsNaN(t *testing.T) {
	assert.False(t, Some(math.NaN()).Valid())
	assert.False(t, Some(math.Inf(1)).Valid())
	assert.Equal(t, 3.0, Undefined().Or(3))
}

func TestPivots(t *testing.T) {
	s := Of([]float64{1, 3, 2, 5, 1, 1, 4, 4, 0})
	highs := PivotHighs(s, 1, 1)
	require.Len(t, highs, 2)
	assert.Equal(t, 1, highs[0].Index)
	assert.Equal(t, 3, highs[1].Index)
	assert.Equal(t, PivotHigh, highs[1].Kind)

	// 4,4 tie disqualifies both; the 1,1 tie disqualifies the low.
	assert.False(t, IsPivotHigh(s, 6, 1, 1))
	assert.False(t, IsPivotLow(s, 4, 1, 1))
	lows := PivotLows(s, 1, 1)
	require.Len(t, lows, 1)
	assert.Equal(t, 2, lows[0].Index)

	assert.False(t, IsPivotHigh(s, 0, 1, 1), "no left context")
	assert.False(t, IsPivotHigh(s, 8, 1, 1), "no right context")

	gap := Of([]float64{1, 3, 2})
	gap[0] = Undefined()
	assert.False(t, IsPivotHigh(gap, 1, 1, 1))
}

func TestCrossOver(t *testing.T) {
	a := Of([]float64{1, 2, 3})
	b := Of([]float64{2, 2, 2})
	assert.False(t, CrossOver(a, b, 1), "touching is not a cross")
	assert.True(t, CrossOver(a, b, 2))
	assert.False(t, CrossUnder(a, b, 2))
	assert.True(t, CrossUnder(b, a, 2))
}

func TestWindowsDoNotSpanGaps(t *testing.T) {
	src := Of([]float64{1, 2, 3, 4, 5, 6, 7, 8})
	src[3] = Undefined()

	sma := SMA(src, 3)
	assert.Equal(t, []bool{false, false, true, false, false, false, true, true}, validity(sma))
	v, _ := sma[2].Get()
	assert.InDelta(t, 2.0, v, 1e-12)
	v, _ = sma[7].Get()
	assert.InDelta(t, 7.0, v, 1e-12)

	dev := StdDev(src, 3)
	assert.Equal(t, validity(sma), validity(dev))
	v, _ = dev[6].Get()
	assert.InDelta(t, math.Sqrt(2.0/3.0), v, 1e-9)
}

func TestATRNeedsMoreThanPeriod(t *testing.T) {
	candles := candlesFrom(zigzag(15))
	assert.Equal(t, 0, ATR(candles, 15).ValidCount())
	atr := ATR(candles, 14)
	assert.Equal(t, 14, atr.FirstValid())
	assert.Equal(t, 1, atr.ValidCount())
}

func validity(s Series) []bool {
	out := make([]bool, len(s))
	for i, f := range s {
		out[i] = f.Valid()
	}
	return out
}
