package market

import "time"

// Candle 单根 K 线。调用方保证按 OpenTime 升序排列，核心计算不做校验。
type Candle struct {
	OpenTime        int64   `json:"open_time"`
	CloseTime       int64   `json:"close_time"`
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
	Trades          int64   `json:"trades,omitempty"`
	TakerBuyVolume  float64 `json:"taker_buy_volume,omitempty"`
	TakerSellVolume float64 `json:"taker_sell_volume,omitempty"`
}

// Timestamp returns the close time when present, otherwise the open time.
func (c Candle) Timestamp() int64 {
	if c.CloseTime != 0 {
		return c.CloseTime
	}
	return c.OpenTime
}

func (c Candle) Time() time.Time { return time.UnixMilli(c.Timestamp()).UTC() }

func (c Candle) Bullish() bool { return c.Close > c.Open }

func (c Candle) Bearish() bool { return c.Close < c.Open }

// Body is the signed close-open distance.
func (c Candle) Body() float64 { return c.Close - c.Open }

func (c Candle) Range() float64 { return c.High - c.Low }

func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Opens(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Open
	}
	return out
}

func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}

// Columns extracts the four series most indicators need in one pass.
func Columns(candles []Candle) (closes, highs, lows, volumes []float64) {
	n := len(candles)
	if n == 0 {
		return nil, nil, nil, nil
	}
	closes = make([]float64, n)
	highs = make([]float64, n)
	lows = make([]float64, n)
	volumes = make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}
	return closes, highs, lows, volumes
}
