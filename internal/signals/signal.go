// Package signals holds the indicator signal generators. Windows shorter than
// MinCandles produce NONE, never an error.
package signals

import (
	"fmt"

	"signalhub/internal/market"
)

// Side is the direction of a signal. NONE is a regular value.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
	None Side = "NONE"
)

func (s Side) Opposite() Side {
	switch s {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return None
	}
}

type Name string

const (
	HeikinAshi Name = "heikin_ashi"
	TrendADX   Name = "trend_adx"
	Koncorde   Name = "koncorde"
	WaveTrend  Name = "wavetrend"
	Whale      Name = "whale"
	Divergence Name = "divergence"
	OrderBlock Name = "order_block"
)

var Names = []Name{HeikinAshi, TrendADX, Koncorde, WaveTrend, Whale, Divergence, OrderBlock}

// IndicatorSignal.Details holds the generator's own typed struct.
type IndicatorSignal struct {
	Indicator Name    `json:"indicator"`
	Signal    Side    `json:"signal"`
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
	Details   any     `json:"details,omitempty"`
}

func (s IndicatorSignal) Active() bool { return s.Signal == Buy || s.Signal == Sell }

// Generator produces one signal for a candle window ordered oldest first.
type Generator interface {
	Name() Name
	MinCandles() int
	Evaluate(candles []market.Candle) IndicatorSignal
}

func newSignal(name Name, candles []market.Candle, side Side, details any) IndicatorSignal {
	out := IndicatorSignal{Indicator: name, Signal: side, Details: details}
	if n := len(candles); n > 0 {
		last := candles[n-1]
		out.Timestamp = last.Timestamp()
		out.Close = last.Close
	}
	return out
}

func noSignal(name Name, candles []market.Candle) IndicatorSignal {
	return newSignal(name, candles, None, nil)
}

// Safe evaluates g and converts a panic into a NONE signal plus an error for
// that generator only.
func Safe(g Generator, candles []market.Candle) (sig IndicatorSignal, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig = noSignal(g.Name(), candles)
			err = fmt.Errorf("generator %s panicked: %v", g.Name(), r)
		}
	}()
	return g.Evaluate(candles), nil
}
