package convergence

import (
	"fmt"
	"math"

	"signalhub/internal/signals"
)

// Result is the combined decision over one candle window.
type Result struct {
	Signal                 signals.Side              `json:"signal"`
	ConfidencePercent      float64                   `json:"confidence_percent"`
	BuyScore               float64                   `json:"buy_score"`
	SellScore              float64                   `json:"sell_score"`
	ContributingIndicators []signals.Name            `json:"contributing_indicators"`
	Conflicts              []string                  `json:"conflicts,omitempty"`
	PerIndicatorSignals    []signals.IndicatorSignal `json:"per_indicator_signals"`
	Failures               map[signals.Name]string   `json:"failures,omitempty"`
	Timestamp              int64                     `json:"timestamp"`
	Close                  float64                   `json:"close"`
}

// Indicator returns the signal of one generator.
func (r Result) Indicator(name signals.Name) (signals.IndicatorSignal, bool) {
	for _, s := range r.PerIndicatorSignals {
		if s.Indicator == name {
			return s, true
		}
	}
	return signals.IndicatorSignal{}, false
}

// Aggregate combines generator outputs. Every active signal adds its weight
// to its side, WaveTrend diamonds and regular divergences add a bonus on top.
// A side wins only when its score reaches the threshold and strictly beats
// the other side. Confidence is the winning score over the summed weights of
// the evaluated generators, capped at 100, and discounted once by the
// conflict penalty when an opposing order block or whale is present.
func Aggregate(sigs []signals.IndicatorSignal, cfg Config) Result {
	cfg = cfg.Normalize()
	res := Result{
		Signal:                 signals.None,
		ContributingIndicators: []signals.Name{},
		PerIndicatorSignals:    sigs,
	}
	var maxScore float64
	for _, s := range sigs {
		if s.Timestamp > res.Timestamp {
			res.Timestamp = s.Timestamp
			res.Close = s.Close
		}
		w := cfg.weight(s.Indicator)
		maxScore += w
		if !s.Active() {
			continue
		}
		score := w + bonus(s, cfg)
		if s.Signal == signals.Buy {
			res.BuyScore += score
		} else {
			res.SellScore += score
		}
	}
	res.BuyScore = round2(res.BuyScore)
	res.SellScore = round2(res.SellScore)

	var winning float64
	switch {
	case res.BuyScore >= cfg.Threshold && res.BuyScore > res.SellScore:
		res.Signal, winning = signals.Buy, res.BuyScore
	case res.SellScore >= cfg.Threshold && res.SellScore > res.BuyScore:
		res.Signal, winning = signals.Sell, res.SellScore
	default:
		return res
	}

	for _, s := range sigs {
		if s.Signal == res.Signal {
			res.ContributingIndicators = append(res.ContributingIndicators, s.Indicator)
		}
	}
	confidence := 0.0
	if maxScore > 0 {
		confidence = math.Min(100, winning/maxScore*100)
	}
	res.Conflicts = conflicts(sigs, res.Signal)
	if len(res.Conflicts) > 0 {
		confidence *= cfg.ConflictPenalty
	}
	res.ConfidencePercent = round2(confidence)
	return res
}

func bonus(s signals.IndicatorSignal, cfg Config) float64 {
	switch d := s.Details.(type) {
	case signals.WaveTrendDetails:
		if d.Diamond {
			return valueOr(cfg.DiamondBonus, 0)
		}
	case signals.DivergenceDetails:
		if d.Regular {
			return valueOr(cfg.DivergenceBonus, 0)
		}
	}
	return 0
}

// conflicts lists warnings against the winning side.
func conflicts(sigs []signals.IndicatorSignal, side signals.Side) []string {
	var out []string
	for _, s := range sigs {
		switch s.Indicator {
		case signals.OrderBlock:
			d, ok := s.Details.(signals.OrderBlockDetails)
			if !ok {
				continue
			}
			if side == signals.Buy && d.TestedBearish != nil {
				out = append(out, fmt.Sprintf("price is testing a bearish order block (bar %d)", d.TestedBearish.Index))
			}
			if side == signals.Sell && d.TestedBullish != nil {
				out = append(out, fmt.Sprintf("price is testing a bullish order block (bar %d)", d.TestedBullish.Index))
			}
		case signals.Whale:
			if s.Signal == side.Opposite() {
				activity := signals.WhaleDistribution
				if s.Signal == signals.Buy {
					activity = signals.WhaleAccumulation
				}
				out = append(out, fmt.Sprintf("whale %s contradicts %s", activity, side))
			}
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
