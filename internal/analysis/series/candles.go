package series

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"signalhub/internal/market"
)

func HLC3(candles []market.Candle) Series {
	out := New(len(candles))
	for i, c := range candles {
		out[i] = Some((c.High + c.Low + c.Close) / 3)
	}
	return out
}

func OHLC4(candles []market.Candle) Series {
	out := New(len(candles))
	for i, c := range candles {
		out[i] = Some((c.Open + c.High + c.Low + c.Close) / 4)
	}
	return out
}

func Closes(candles []market.Candle) Series { return Of(market.Closes(candles)) }

func Volumes(candles []market.Candle) Series { return Of(market.Volumes(candles)) }

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first bar
// has no previous close and is undefined.
func TrueRange(candles []market.Candle) Series {
	out := New(len(candles))
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		out[i] = Some(tr)
	}
	return out
}

func ATR(candles []market.Candle, period int) Series {
	if period <= 0 || len(candles) <= period {
		return New(len(candles))
	}
	highs, lows, closes := hlc(candles)
	return fromTalib(talib.Atr(highs, lows, closes, period), period)
}

// MFI is the money flow index: typical price × volume split into positive and
// negative flow by the direction of the typical price, Wilder-smoothed. It is
// 100 when the negative average is zero.
func MFI(candles []market.Candle, period int) Series {
	n := len(candles)
	pos := New(n)
	neg := New(n)
	tp := HLC3(candles)
	for i := 1; i < n; i++ {
		cur := tp[i].v
		prev := tp[i-1].v
		flow := cur * candles[i].Volume
		switch {
		case cur > prev:
			pos[i], neg[i] = Some(flow), Some(0)
		case cur < prev:
			pos[i], neg[i] = Some(0), Some(flow)
		default:
			pos[i], neg[i] = Some(0), Some(0)
		}
	}
	return ratioOscillator(Wilder(pos, period), Wilder(neg, period))
}

// VWAP is the rolling volume-weighted typical price over window bars including
// the current one; undefined when the window carries no volume.
func VWAP(candles []market.Candle, window int) Series {
	out := New(len(candles))
	if window <= 0 {
		return out
	}
	for i := window - 1; i < len(candles); i++ {
		pv, vol := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			c := candles[j]
			pv += (c.High + c.Low + c.Close) / 3 * c.Volume
			vol += c.Volume
		}
		if vol == 0 {
			continue
		}
		out[i] = Some(pv / vol)
	}
	return out
}
