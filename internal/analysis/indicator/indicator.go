package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"signalhub/internal/market"
	"signalhub/internal/signals"
)

type Settings struct {
	Symbol     string
	Interval   string
	EMA        EMASettings
	RSI        RSISettings
	Divergence signals.DivergenceConfig
	// FlowWindow 为主动买卖量统计窗口，默认 20。
	FlowWindow int
}

type EMASettings struct {
	Fast int `json:"fast,omitempty"`
	Mid  int `json:"mid,omitempty"`
	Slow int `json:"slow,omitempty"`
	Long int `json:"long,omitempty"`
}

type RSISettings struct {
	Period     int     `json:"period,omitempty"`
	Oversold   float64 `json:"oversold,omitempty"`
	Overbought float64 `json:"overbought,omitempty"`
}

type IndicatorValue struct {
	Latest float64   `json:"latest"`
	Series []float64 `json:"series,omitempty"`
	State  string    `json:"state,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Report is a descriptive snapshot; it never feeds the convergence vote.
type Report struct {
	Symbol      string                    `json:"symbol"`
	Interval    string                    `json:"interval"`
	Count       int                       `json:"count"`
	Values      map[string]IndicatorValue `json:"values"`
	Divergences []OscillatorDivergence    `json:"divergences,omitempty"`
	Flow        *market.FlowMetrics       `json:"flow,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
}

func (s Settings) withDefaults() Settings {
	if s.EMA.Fast <= 0 {
		s.EMA.Fast = 21
	}
	if s.EMA.Mid <= 0 {
		s.EMA.Mid = 55
	}
	if s.EMA.Slow <= 0 {
		s.EMA.Slow = 100
	}
	if s.EMA.Long <= 0 {
		s.EMA.Long = 200
	}
	if s.RSI.Period <= 0 {
		s.RSI.Period = 14
	}
	if s.RSI.Overbought == 0 {
		s.RSI.Overbought = 70
	}
	if s.RSI.Oversold == 0 {
		s.RSI.Oversold = 30
	}
	if s.FlowWindow <= 0 {
		s.FlowWindow = 20
	}
	return s
}

// ComputeAll 计算一组常用指标的最新值与序列（已去掉 NaN 与预热段）。
func ComputeAll(candles []market.Candle, cfg Settings) (Report, error) {
	cfg = cfg.withDefaults()
	rep := Report{
		Symbol:   cfg.Symbol,
		Interval: cfg.Interval,
		Count:    len(candles),
		Values:   make(map[string]IndicatorValue),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	if len(candles) < MinCandles {
		return rep, fmt.Errorf("indicator report needs %d candles, got %d", MinCandles, len(candles))
	}
	closes, highs, lows, volumes := market.Columns(candles)
	lastClose := closes[len(closes)-1]

	emas := []struct {
		key    string
		period int
	}{
		{"ema_fast", cfg.EMA.Fast},
		{"ema_mid", cfg.EMA.Mid},
		{"ema_slow", cfg.EMA.Slow},
		{"ema_long", cfg.EMA.Long},
	}
	for _, e := range emas {
		if len(closes) < e.period {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s needs %d candles", e.key, e.period))
			continue
		}
		s := sanitizeSeries(warm(talib.Ema(closes, e.period), e.period-1))
		rep.Values[e.key] = IndicatorValue{
			Latest: lastValid(s),
			Series: s,
			State:  relativeState(lastClose, lastValid(s)),
			Note:   fmt.Sprintf("EMA%d vs price", e.period),
		}
	}

	rsiSeries := sanitizeSeries(warm(talib.Rsi(closes, cfg.RSI.Period), cfg.RSI.Period))
	rsiVal := lastValid(rsiSeries)
	state := "neutral"
	switch {
	case len(rsiSeries) == 0:
		state = "unknown"
	case rsiVal >= cfg.RSI.Overbought:
		state = "overbought"
	case rsiVal <= cfg.RSI.Oversold:
		state = "oversold"
	}
	rep.Values["rsi"] = IndicatorValue{
		Latest: rsiVal,
		Series: rsiSeries,
		State:  state,
		Note:   fmt.Sprintf("period=%d thresholds=%.1f/%.1f", cfg.RSI.Period, cfg.RSI.Oversold, cfg.RSI.Overbought),
	}

	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	macdSeries := sanitizeSeries(warm(macd, macdWarmup))
	signalSeries := sanitizeSeries(warm(signal, macdWarmup))
	histSeries := sanitizeSeries(warm(hist, macdWarmup))
	rep.Values["macd"] = IndicatorValue{
		Latest: lastValid(macdSeries),
		Series: histSeries,
		State:  polarityState(lastValid(histSeries)),
		Note:   fmt.Sprintf("signal=%.4f hist=%.4f", lastValid(signalSeries), lastValid(histSeries)),
	}

	rocSeries := sanitizeSeries(warm(talib.Roc(closes, 9), 9))
	rocVal := lastValid(rocSeries)
	rep.Values["roc"] = IndicatorValue{
		Latest: rocVal,
		Series: rocSeries,
		State:  polarityState(rocVal),
		Note:   "period=9",
	}

	k, d := talib.Stoch(highs, lows, closes, 14, 3, talib.SMA, 3, talib.SMA)
	kSeries := sanitizeSeries(warm(k, 17))
	dSeries := sanitizeSeries(warm(d, 17))
	rep.Values["stoch_k"] = IndicatorValue{
		Latest: lastValid(kSeries),
		Series: kSeries,
		State:  stochasticState(lastValid(kSeries)),
		Note:   fmt.Sprintf("d=%.2f", lastValid(dSeries)),
	}

	will := sanitizeSeries(warm(talib.WillR(highs, lows, closes, 14), 13))
	rep.Values["williams_r"] = IndicatorValue{
		Latest: lastValid(will),
		Series: will,
		State:  stochasticState(100 + lastValid(will)),
		Note:   "period=14",
	}

	atrSeries := sanitizeSeries(warm(talib.Atr(highs, lows, closes, 14), 14))
	rep.Values["atr"] = IndicatorValue{
		Latest: lastValid(atrSeries),
		Series: atrSeries,
		State:  "volatility",
		Note:   "period=14",
	}

	cci := sanitizeSeries(warm(talib.Cci(highs, lows, closes, 20), 19))
	cciState := "neutral"
	switch v := lastValid(cci); {
	case v >= 100:
		cciState = "overbought"
	case v <= -100:
		cciState = "oversold"
	}
	rep.Values["cci"] = IndicatorValue{
		Latest: lastValid(cci),
		Series: cci,
		State:  cciState,
		Note:   "period=20",
	}

	obv := sanitizeSeries(talib.Obv(closes, volumes))
	rep.Values["obv"] = IndicatorValue{
		Latest: lastValid(obv),
		Series: obv,
		State:  polarityState(rocVal),
		Note:   "volume thrust",
	}

	rep.Divergences = ScanDivergences(candles, cfg.Divergence)
	if flow, ok := market.ComputeFlow(candles, cfg.FlowWindow); ok {
		rep.Flow = &flow
	}
	return rep, nil
}

// ComputeATRSeries 供回测与图表使用，长度与输入一致，预热段为 NaN。
func ComputeATRSeries(candles []market.Candle, period int) ([]float64, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles")
	}
	if period <= 0 {
		period = 14
	}
	if len(candles) <= period {
		return nil, fmt.Errorf("atr needs more than %d candles, got %d", period, len(candles))
	}
	_, highs, lows, _ := market.Columns(candles)
	return warm(talib.Atr(highs, lows, market.Closes(candles), period), period), nil
}

const (
	macdWarmup = 33
	// MinCandles covers the longest fixed lookback (MACD 26/9).
	MinCandles = macdWarmup + 1
)

// warm marks the first n outputs as NaN; talib leaves zeros there.
func warm(values []float64, n int) []float64 {
	for i := 0; i < n && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

func sanitizeSeries(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if !isFinite(v) {
			continue
		}
		out = append(out, round4(v))
	}
	return out
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if isFinite(series[i]) {
			return series[i]
		}
	}
	return 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	switch {
	case price > ref*1.002:
		return "above"
	case price < ref*0.998:
		return "below"
	default:
		return "touch"
	}
}

func polarityState(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	default:
		return "flat"
	}
}

func stochasticState(v float64) string {
	switch {
	case v >= 80:
		return "overbought"
	case v <= 20:
		return "oversold"
	default:
		return "neutral"
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
