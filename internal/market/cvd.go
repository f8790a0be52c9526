package market

import "github.com/shopspring/decimal"

// FlowMetrics summarises taker order flow over a trailing window.
type FlowMetrics struct {
	Delta      decimal.Decimal `json:"delta"`
	BuyShare   decimal.Decimal `json:"buy_share"`
	Divergence string          `json:"divergence"`
}

// ComputeFlow accumulates taker buy minus taker sell volume over the last
// window candles.
//   - Delta: Σ(taker_buy - taker_sell).
//   - BuyShare: Σtaker_buy / Σ(taker_buy + taker_sell), 0.5 when no taker data.
//   - Divergence: "down" when price rose over the window while delta is negative,
//     "up" when price fell while delta is positive, otherwise "neutral".
//
// The second return value is false when the candles carry no taker volumes.
func ComputeFlow(candles []Candle, window int) (FlowMetrics, bool) {
	if len(candles) == 0 {
		return FlowMetrics{}, false
	}
	if window <= 0 || window > len(candles) {
		window = len(candles)
	}
	tail := candles[len(candles)-window:]
	delta := decimal.Zero
	buys := decimal.Zero
	total := decimal.Zero
	for _, c := range tail {
		buy := decimal.NewFromFloat(c.TakerBuyVolume)
		sell := decimal.NewFromFloat(c.TakerSellVolume)
		delta = delta.Add(buy.Sub(sell))
		buys = buys.Add(buy)
		total = total.Add(buy).Add(sell)
	}
	if total.IsZero() {
		return FlowMetrics{BuyShare: decimal.NewFromFloat(0.5), Divergence: "neutral"}, false
	}

	priceNow := tail[len(tail)-1].Close
	pricePrev := tail[0].Open
	divergence := "neutral"
	switch {
	case priceNow > pricePrev && delta.IsNegative():
		divergence = "down"
	case priceNow < pricePrev && delta.IsPositive():
		divergence = "up"
	}
	return FlowMetrics{
		Delta:      delta,
		BuyShare:   buys.Div(total).Round(4),
		Divergence: divergence,
	}, true
}
