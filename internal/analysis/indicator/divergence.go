package indicator

import (
	"sort"

	talib "github.com/markcheno/go-talib"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
	"signalhub/internal/signals"
)

// OscillatorDivergence is one price/oscillator divergence that is still
// recent enough to matter.
type OscillatorDivergence struct {
	Oscillator string                     `json:"oscillator"`
	Type       signals.DivergenceType     `json:"type"`
	Polarity   signals.DivergencePolarity `json:"polarity"`
	// BarsAgo counts from the last candle to the later price pivot.
	BarsAgo int `json:"bars_ago"`
}

type oscillator struct {
	name   string
	values series.Series
}

// ScanDivergences runs the pivot matcher against several oscillators at once.
// The price pivots come from closes.
func ScanDivergences(candles []market.Candle, cfg signals.DivergenceConfig) []OscillatorDivergence {
	def := signals.DefaultDivergenceConfig()
	if cfg.PivotLeft <= 0 {
		cfg.PivotLeft = def.PivotLeft
	}
	if cfg.PivotRight <= 0 {
		cfg.PivotRight = def.PivotRight
	}
	if cfg.ActiveWindow <= 0 {
		cfg.ActiveWindow = def.ActiveWindow
	}
	n := len(candles)
	if n < cfg.PivotLeft+cfg.PivotRight+macdWarmup {
		return nil
	}
	closes, highs, lows, volumes := market.Columns(candles)
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	oscs := []oscillator{
		{"rsi", series.Of(warm(talib.Rsi(closes, 14), 14))},
		{"macd_hist", series.Of(warm(hist, macdWarmup))},
		{"mfi", series.MFI(candles, 14)},
		{"cci", series.Of(warm(talib.Cci(highs, lows, closes, 10), 9))},
		{"mom", series.Of(warm(talib.Mom(closes, 10), 10))},
		{"obv", series.Of(talib.Obv(closes, volumes))},
	}
	return scanOscillators(series.Of(closes), oscs, cfg)
}

func scanOscillators(price series.Series, oscs []oscillator, cfg signals.DivergenceConfig) []OscillatorDivergence {
	n := len(price)
	highs := series.PivotHighs(price, cfg.PivotLeft, cfg.PivotRight)
	lows := series.PivotLows(price, cfg.PivotLeft, cfg.PivotRight)
	var out []OscillatorDivergence
	for _, o := range oscs {
		found := append(
			signals.MatchDivergences(lows, series.PivotLows(o.values, cfg.PivotLeft, cfg.PivotRight), signals.BullishDivergence, cfg),
			signals.MatchDivergences(highs, series.PivotHighs(o.values, cfg.PivotLeft, cfg.PivotRight), signals.BearishDivergence, cfg)...,
		)
		for _, d := range found {
			ago := n - 1 - d.EndIndex
			if ago > cfg.ActiveWindow {
				continue
			}
			out = append(out, OscillatorDivergence{
				Oscillator: o.name,
				Type:       d.Type,
				Polarity:   d.Polarity,
				BarsAgo:    ago,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BarsAgo < out[j].BarsAgo })
	return out
}
