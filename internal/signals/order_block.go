package signals

import (
	"sort"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

type OrderBlockConfig struct {
	ATRPeriod          int     `json:"atr_period" toml:"atr_period" yaml:"atr_period"`
	MinConsecutiveBars int     `json:"min_consecutive_bars" toml:"min_consecutive_bars" yaml:"min_consecutive_bars"`
	MinMoveMultiplier  float64 `json:"min_move_multiplier" toml:"min_move_multiplier" yaml:"min_move_multiplier"`
	LookbackPeriod     int     `json:"lookback_period" toml:"lookback_period" yaml:"lookback_period"`
	MinVolumeRatio     float64 `json:"min_volume_ratio" toml:"min_volume_ratio" yaml:"min_volume_ratio"`
	VolumeWindow       int     `json:"volume_window" toml:"volume_window" yaml:"volume_window"`
	MaxOrderBlockAge   int     `json:"max_order_block_age" toml:"max_order_block_age" yaml:"max_order_block_age"`
	TestThreshold      float64 `json:"test_threshold" toml:"test_threshold" yaml:"test_threshold"`
}

func DefaultOrderBlockConfig() OrderBlockConfig {
	return OrderBlockConfig{
		ATRPeriod:          14,
		MinConsecutiveBars: 3,
		MinMoveMultiplier:  1.5,
		LookbackPeriod:     10,
		MinVolumeRatio:     1.2,
		VolumeWindow:       20,
		MaxOrderBlockAge:   50,
		TestThreshold:      0.005,
	}
}

func (c OrderBlockConfig) normalize() OrderBlockConfig {
	def := DefaultOrderBlockConfig()
	c.ATRPeriod = intOr(c.ATRPeriod, def.ATRPeriod)
	c.MinConsecutiveBars = intOr(c.MinConsecutiveBars, def.MinConsecutiveBars)
	c.MinMoveMultiplier = floatOr(c.MinMoveMultiplier, def.MinMoveMultiplier)
	c.LookbackPeriod = intOr(c.LookbackPeriod, def.LookbackPeriod)
	c.MinVolumeRatio = floatOr(c.MinVolumeRatio, def.MinVolumeRatio)
	c.VolumeWindow = intOr(c.VolumeWindow, def.VolumeWindow)
	c.MaxOrderBlockAge = intOr(c.MaxOrderBlockAge, def.MaxOrderBlockAge)
	c.TestThreshold = floatOr(c.TestThreshold, def.TestThreshold)
	return c
}

type OrderBlockKind string

const (
	BullishBlock OrderBlockKind = "bullish"
	BearishBlock OrderBlockKind = "bearish"
)

// Block is the last opposite-coloured candle before a strong move.
type Block struct {
	Kind          OrderBlockKind `json:"kind"`
	Index         int            `json:"index"`
	Timestamp     int64          `json:"timestamp"`
	Open          float64        `json:"open"`
	High          float64        `json:"high"`
	Low           float64        `json:"low"`
	Close         float64        `json:"close"`
	Volume        float64        `json:"volume"`
	StrengthRatio float64        `json:"strength_ratio"`
}

type OrderBlockDetails struct {
	ATR           float64 `json:"atr"`
	Blocks        []Block `json:"blocks,omitempty"`
	TestedBullish *Block  `json:"tested_bullish,omitempty"`
	TestedBearish *Block  `json:"tested_bearish,omitempty"`
}

// OrderBlockGenerator signals when the latest close retests an active block
// from its favourable side.
type OrderBlockGenerator struct {
	cfg OrderBlockConfig
}

func NewOrderBlockGenerator(cfg OrderBlockConfig) *OrderBlockGenerator {
	return &OrderBlockGenerator{cfg: cfg.normalize()}
}

func (g *OrderBlockGenerator) Name() Name { return OrderBlock }

func (g *OrderBlockGenerator) MinCandles() int {
	return g.cfg.ATRPeriod + g.cfg.MinConsecutiveBars + 1
}

func (g *OrderBlockGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(OrderBlock, candles)
	}
	c := g.cfg
	atr := series.ATR(candles, c.ATRPeriod)
	blocks := FindOrderBlocks(candles, atr, c)

	details := OrderBlockDetails{ATR: atr.Last().Or(0), Blocks: blocks}
	price := candles[len(candles)-1].Close
	for i := range blocks {
		b := blocks[i]
		switch b.Kind {
		case BullishBlock:
			if price >= b.Low && price <= b.High*(1+c.TestThreshold) {
				if details.TestedBullish == nil || b.Index > details.TestedBullish.Index {
					details.TestedBullish = &b
				}
			}
		case BearishBlock:
			if price <= b.High && price >= b.Low*(1-c.TestThreshold) {
				if details.TestedBearish == nil || b.Index > details.TestedBearish.Index {
					details.TestedBearish = &b
				}
			}
		}
	}

	side := None
	bull, bear := details.TestedBullish, details.TestedBearish
	switch {
	case bull != nil && (bear == nil || bull.Index > bear.Index):
		side = Buy
	case bear != nil:
		side = Sell
	}
	return newSignal(OrderBlock, candles, side, details)
}

// FindOrderBlocks returns blocks oldest first.
func FindOrderBlocks(candles []market.Candle, atr series.Series, cfg OrderBlockConfig) []Block {
	cfg = cfg.normalize()
	n := len(candles)
	k := cfg.MinConsecutiveBars
	seen := make(map[int]Block)
	for end := k - 1; end < n; end++ {
		a, ok := atr.At(end).Get()
		if !ok {
			continue
		}
		start := end - k + 1
		bull, bear := true, true
		move := 0.0
		for j := start; j <= end; j++ {
			bull = bull && candles[j].Bullish()
			bear = bear && candles[j].Bearish()
			move += candles[j].Body()
		}
		var kind OrderBlockKind
		switch {
		case bull && move > cfg.MinMoveMultiplier*a:
			kind = BullishBlock
		case bear && -move > cfg.MinMoveMultiplier*a:
			kind = BearishBlock
		default:
			continue
		}
		idx := originCandle(candles, start, kind, cfg.LookbackPeriod)
		if idx < 0 || n-1-idx > cfg.MaxOrderBlockAge {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		ratio, ok := volumeRatio(candles, idx, cfg.VolumeWindow)
		if !ok || ratio <= cfg.MinVolumeRatio {
			continue
		}
		oc := candles[idx]
		seen[idx] = Block{
			Kind:          kind,
			Index:         idx,
			Timestamp:     oc.Timestamp(),
			Open:          oc.Open,
			High:          oc.High,
			Low:           oc.Low,
			Close:         oc.Close,
			Volume:        oc.Volume,
			StrengthRatio: ratio,
		}
	}
	out := make([]Block, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func originCandle(candles []market.Candle, start int, kind OrderBlockKind, lookback int) int {
	for j := start - 1; j >= 0 && j >= start-lookback; j-- {
		if kind == BullishBlock && candles[j].Bearish() {
			return j
		}
		if kind == BearishBlock && candles[j].Bullish() {
			return j
		}
	}
	return -1
}

// volumeRatio compares a candle's volume with the average of up to window
// candles before it.
func volumeRatio(candles []market.Candle, idx, window int) (float64, bool) {
	from := idx - window
	if from < 0 {
		from = 0
	}
	if from >= idx {
		return 0, false
	}
	sum := 0.0
	for j := from; j < idx; j++ {
		sum += candles[j].Volume
	}
	avg := sum / float64(idx-from)
	if avg <= 0 {
		return 0, false
	}
	return candles[idx].Volume / avg, true
}
