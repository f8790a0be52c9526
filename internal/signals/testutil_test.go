package signals

import (
	"math"

	"signalhub/internal/market"
)

// pathCandles turns a close path into candles whose open is the previous
// close, with a fixed wick on both sides of the body.
func pathCandles(closes []float64, wick float64, volume func(i int) float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		v := 1000.0
		if volume != nil {
			v = volume(i)
		}
		out[i] = market.Candle{
			OpenTime:  int64(i) * 3_600_000,
			CloseTime: int64(i+1)*3_600_000 - 1,
			Open:      open,
			High:      math.Max(open, c) + wick,
			Low:       math.Min(open, c) - wick,
			Close:     c,
			Volume:    v,
		}
	}
	return out
}

func bar(open, high, low, close, volume float64) market.Candle {
	return market.Candle{Open: open, High: high, Low: low, Close: close, Volume: volume}
}

func stamp(candles []market.Candle) []market.Candle {
	for i := range candles {
		candles[i].OpenTime = int64(i) * 60_000
		candles[i].CloseTime = int64(i+1)*60_000 - 1
	}
	return candles
}
