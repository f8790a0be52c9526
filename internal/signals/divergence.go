package signals

import (
	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

type DivergenceConfig struct {
	RSIPeriod  int `json:"rsi_period" toml:"rsi_period" yaml:"rsi_period"`
	PivotLeft  int `json:"pivot_left" toml:"pivot_left" yaml:"pivot_left"`
	PivotRight int `json:"pivot_right" toml:"pivot_right" yaml:"pivot_right"`
	// MinBars and MaxBars bound the distance between the two price pivots.
	MinBars int `json:"min_bars" toml:"min_bars" yaml:"min_bars"`
	MaxBars int `json:"max_bars" toml:"max_bars" yaml:"max_bars"`
	// Tolerance is how far, in bars, an RSI pivot may sit from its price pivot.
	Tolerance int `json:"tolerance" toml:"tolerance" yaml:"tolerance"`
	// ActiveWindow keeps divergences whose later pivot is this close to the end.
	ActiveWindow int `json:"active_window" toml:"active_window" yaml:"active_window"`
}

func DefaultDivergenceConfig() DivergenceConfig {
	return DivergenceConfig{
		RSIPeriod:    14,
		PivotLeft:    5,
		PivotRight:   5,
		MinBars:      5,
		MaxBars:      60,
		Tolerance:    2,
		ActiveWindow: 15,
	}
}

func (c DivergenceConfig) normalize() DivergenceConfig {
	def := DefaultDivergenceConfig()
	c.RSIPeriod = intOr(c.RSIPeriod, def.RSIPeriod)
	c.PivotLeft = intOr(c.PivotLeft, def.PivotLeft)
	c.PivotRight = intOr(c.PivotRight, def.PivotRight)
	c.MinBars = intOr(c.MinBars, def.MinBars)
	c.MaxBars = intOr(c.MaxBars, def.MaxBars)
	if c.MaxBars < c.MinBars {
		c.MaxBars = c.MinBars
	}
	c.Tolerance = intOr(c.Tolerance, def.Tolerance)
	c.ActiveWindow = intOr(c.ActiveWindow, def.ActiveWindow)
	return c
}

type DivergenceType string

const (
	RegularDivergence DivergenceType = "regular"
	HiddenDivergence  DivergenceType = "hidden"
)

type DivergencePolarity string

const (
	BullishDivergence DivergencePolarity = "bullish"
	BearishDivergence DivergencePolarity = "bearish"
)

type PriceDivergence struct {
	Type       DivergenceType     `json:"type"`
	Polarity   DivergencePolarity `json:"polarity"`
	StartIndex int                `json:"start_index"`
	EndIndex   int                `json:"end_index"`
	PriceStart float64            `json:"price_start"`
	PriceEnd   float64            `json:"price_end"`
	RSIStart   float64            `json:"rsi_start"`
	RSIEnd     float64            `json:"rsi_end"`
}

type DivergenceDetails struct {
	RSI         float64           `json:"rsi"`
	Divergences []PriceDivergence `json:"divergences,omitempty"`
	Regular     bool              `json:"regular"`
}

// DivergenceGenerator signals on active regular divergences. Hidden ones are
// reported in the details only.
type DivergenceGenerator struct {
	cfg DivergenceConfig
}

func NewDivergenceGenerator(cfg DivergenceConfig) *DivergenceGenerator {
	return &DivergenceGenerator{cfg: cfg.normalize()}
}

func (g *DivergenceGenerator) Name() Name { return Divergence }

func (g *DivergenceGenerator) MinCandles() int {
	c := g.cfg
	return c.RSIPeriod + c.PivotLeft + c.PivotRight + c.MinBars + 1
}

func (g *DivergenceGenerator) Evaluate(candles []market.Candle) IndicatorSignal {
	if len(candles) < g.MinCandles() {
		return noSignal(Divergence, candles)
	}
	c := g.cfg
	rsi := series.RSI(series.Closes(candles), c.RSIPeriod)
	lows := series.Of(market.Lows(candles))
	highs := series.Of(market.Highs(candles))

	found := MatchDivergences(
		series.PivotLows(lows, c.PivotLeft, c.PivotRight),
		series.PivotLows(rsi, c.PivotLeft, c.PivotRight),
		BullishDivergence, c)
	found = append(found, MatchDivergences(
		series.PivotHighs(highs, c.PivotLeft, c.PivotRight),
		series.PivotHighs(rsi, c.PivotLeft, c.PivotRight),
		BearishDivergence, c)...)

	side, active := activeSide(found, len(candles)-1-c.ActiveWindow)
	details := DivergenceDetails{
		RSI:         rsi.Last().Or(0),
		Divergences: active,
		Regular:     side != None,
	}
	return newSignal(Divergence, candles, side, details)
}

// activeSide keeps divergences ending at or after cutoff. Only regular ones
// vote: the newer polarity wins and a tie cancels out.
func activeSide(found []PriceDivergence, cutoff int) (Side, []PriceDivergence) {
	var active []PriceDivergence
	bullEnd, bearEnd := -1, -1
	for _, d := range found {
		if d.EndIndex < cutoff {
			continue
		}
		active = append(active, d)
		if d.Type != RegularDivergence {
			continue
		}
		if d.Polarity == BullishDivergence && d.EndIndex > bullEnd {
			bullEnd = d.EndIndex
		}
		if d.Polarity == BearishDivergence && d.EndIndex > bearEnd {
			bearEnd = d.EndIndex
		}
	}
	switch {
	case bullEnd > bearEnd:
		return Buy, active
	case bearEnd > bullEnd:
		return Sell, active
	}
	return None, active
}

// MatchDivergences expects pivot lows for bullish polarity and pivot highs
// for bearish.
func MatchDivergences(price, osc []series.Pivot, polarity DivergencePolarity, cfg DivergenceConfig) []PriceDivergence {
	cfg = cfg.normalize()
	var out []PriceDivergence
	for i := 1; i < len(price); i++ {
		a, b := price[i-1], price[i]
		gap := b.Index - a.Index
		if gap < cfg.MinBars || gap > cfg.MaxBars {
			continue
		}
		oa, okA := nearestPivot(osc, a.Index, cfg.Tolerance)
		ob, okB := nearestPivot(osc, b.Index, cfg.Tolerance)
		if !okA || !okB || oa.Index >= ob.Index {
			continue
		}
		typ, ok := classify(polarity, a.Value, b.Value, oa.Value, ob.Value)
		if !ok {
			continue
		}
		out = append(out, PriceDivergence{
			Type:       typ,
			Polarity:   polarity,
			StartIndex: a.Index,
			EndIndex:   b.Index,
			PriceStart: a.Value,
			PriceEnd:   b.Value,
			RSIStart:   oa.Value,
			RSIEnd:     ob.Value,
		})
	}
	return out
}

func classify(polarity DivergencePolarity, p0, p1, o0, o1 float64) (DivergenceType, bool) {
	if polarity == BullishDivergence {
		switch {
		case p1 < p0 && o1 > o0:
			return RegularDivergence, true
		case p1 > p0 && o1 < o0:
			return HiddenDivergence, true
		}
		return "", false
	}
	switch {
	case p1 > p0 && o1 < o0:
		return RegularDivergence, true
	case p1 < p0 && o1 > o0:
		return HiddenDivergence, true
	}
	return "", false
}

// nearestPivot picks the pivot closest to idx within tol bars; the earlier
// one wins a distance tie.
func nearestPivot(pivots []series.Pivot, idx, tol int) (series.Pivot, bool) {
	best := -1
	bestDist := tol + 1
	for i, p := range pivots {
		d := p.Index - idx
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return series.Pivot{}, false
	}
	return pivots[best], true
}
