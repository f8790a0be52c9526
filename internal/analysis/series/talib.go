package series

import (
	"signalhub/internal/market"
)

// talib 输出的预热段为 0，这里统一置为未定义。
func fromTalib(values []float64, lookback int) Series {
	out := New(len(values))
	for i := lookback; i < len(values); i++ {
		out[i] = Some(values[i])
	}
	return out
}

// byRuns 对每一段连续有定义的值分别调用 fn，长度不足 minLen 的段保持未定义。
// 跨越空洞的窗口因此不会被计算。
func byRuns(src Series, minLen, lookback int, fn func([]float64) []float64) Series {
	out := New(len(src))
	start := -1
	flush := func(end int) {
		if start < 0 || end-start < minLen {
			return
		}
		vals := make([]float64, end-start)
		for j := range vals {
			vals[j] = src[start+j].v
		}
		res := fn(vals)
		for j := lookback; j < len(res); j++ {
			out[start+j] = Some(res[j])
		}
	}
	for i, f := range src {
		if f.ok {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		start = -1
	}
	flush(len(src))
	return out
}

func hlc(candles []market.Candle) (highs, lows, closes []float64) {
	return market.Highs(candles), market.Lows(candles), market.Closes(candles)
}
