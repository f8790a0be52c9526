package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalhub/internal/analysis/series"
	"signalhub/internal/market"
)

// 1000 hourly bars: down for 400, up for 300, down for 300.
func reversalPath() []float64 {
	closes := make([]float64, 1000)
	price := 1000.0
	for i := range closes {
		switch {
		case i == 0:
		case i < 400:
			price--
		case i < 700:
			price++
		default:
			price--
		}
		closes[i] = price
	}
	return closes
}

func TestHeikinAshiSignalsOnlyAtReversals(t *testing.T) {
	candles := pathCandles(reversalPath(), 0.1, nil)
	g := NewHeikinAshiGenerator(DefaultHeikinAshiConfig())

	type hit struct {
		index int
		side  Side
	}
	var hits []hit
	for n := g.MinCandles(); n <= len(candles); n++ {
		sig := g.Evaluate(candles[:n])
		if sig.Active() {
			hits = append(hits, hit{index: n - 1, side: sig.Signal})
		}
	}

	require.Len(t, hits, 2, "%v", hits)
	assert.Equal(t, Buy, hits[0].side)
	assert.GreaterOrEqual(t, hits[0].index, 400)
	assert.Less(t, hits[0].index, 460)
	assert.Equal(t, Sell, hits[1].side)
	assert.GreaterOrEqual(t, hits[1].index, 700)
	assert.Less(t, hits[1].index, 760)
}

func TestHeikinAshiClose(t *testing.T) {
	candles := []market.Candle{
		bar(10, 12, 9, 11, 1),
		bar(11, 14, 10, 13, 1),
	}
	ha := HeikinAshiClose(candles)
	// bar 0: haOpen = ohlc4 = 10.5, close = (10.5+10.5+12+9)/4
	v0, _ := ha[0].Get()
	assert.InDelta(t, 10.5, v0, 1e-12)
	// bar 1: haOpen = (10.5+10.5)/2 = 10.5, ohlc4 = 12
	v1, _ := ha[1].Get()
	assert.InDelta(t, (12+10.5+14+10)/4.0, v1, 1e-12)
}

func TestTrendBuyOnPullbackPivot(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 40; i++ {
		c := 100 + float64(i)
		candles = append(candles, bar(c-1, c+0.2, c-1.2, c, 1000))
	}
	candles = append(candles,
		bar(139, 139.2, 136.3, 136.5, 1000),
		bar(136.5, 136.7, 133.8, 134, 1000),
		bar(134, 134.2, 131.3, 131.5, 1000),
		bar(131.5, 133.2, 131.4, 133, 1000),
		bar(133, 135.2, 132.8, 135, 1000),
	)
	sig := NewTrendGenerator(DefaultTrendConfig()).Evaluate(stamp(candles))
	d := sig.Details.(TrendDetails)
	assert.True(t, d.PivotLow)
	assert.Equal(t, 42, d.PivotIndex)
	assert.Greater(t, d.ADX, 25.0)
	assert.Greater(t, d.PlusDI, d.MinusDI)
	assert.Greater(t, d.Momentum, 0.0)
	assert.Equal(t, Buy, sig.Signal)
}

func TestTrendNoPivotNoSignal(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 60; i++ {
		c := 100 + float64(i)
		candles = append(candles, bar(c-1, c+0.2, c-1.2, c, 1000))
	}
	sig := NewTrendGenerator(DefaultTrendConfig()).Evaluate(stamp(candles))
	d := sig.Details.(TrendDetails)
	assert.Greater(t, d.ADX, 25.0)
	assert.False(t, d.PivotLow)
	assert.Equal(t, None, sig.Signal)
}

func TestDirectionalMovementFlatMarket(t *testing.T) {
	candles := make([]market.Candle, 40)
	for i := range candles {
		candles[i] = bar(100, 100, 100, 100, 1)
	}
	dmi := DirectionalMovement(candles, 14)
	v, ok := dmi.DX.Last().Get()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Equal(t, 27, dmi.ADX.FirstValid())
}

func TestKoncordeBuyOnQuietSelloff(t *testing.T) {
	closes := make([]float64, 315)
	price := 100.0
	for i := range closes {
		if i >= 300 {
			price *= 0.99
		}
		closes[i] = price
	}
	volume := func(i int) float64 {
		if i < 300 {
			return 1000
		}
		return 1000 - 10*float64(i-299)
	}
	candles := pathCandles(closes, 0.1, volume)

	sig := NewKoncordeGenerator(DefaultKoncordeConfig()).Evaluate(candles)
	d := sig.Details.(KoncordeDetails)
	assert.Equal(t, 1000.0, d.PVI)
	assert.Less(t, d.NVI, 1000.0)
	assert.Greater(t, d.Strength, 0.0)
	assert.Less(t, d.MFI, 20.0)
	assert.Less(t, d.Oscillator, -50.0)
	assert.Equal(t, Buy, sig.Signal)
}

func TestVolumeIndices(t *testing.T) {
	candles := []market.Candle{
		bar(0, 0, 0, 100, 10),
		bar(0, 0, 0, 110, 20), // volume up: PVI +10%
		bar(0, 0, 0, 99, 5),   // volume down: NVI -10%
		bar(0, 0, 0, 120, 5),  // unchanged volume: both copy
	}
	pvi, nvi := VolumeIndices(candles)
	assert.InDelta(t, 1100, pvi[3].Or(0), 1e-9)
	assert.InDelta(t, 900, nvi[3].Or(0), 1e-9)
	assert.InDelta(t, 1000, nvi[1].Or(0), 1e-9)
}

func TestBollingerOscillatorBounds(t *testing.T) {
	flat := series.Of([]float64{5, 5, 5, 5})
	v, ok := BollingerOscillator(flat, 3, 2).Last().Get()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	spike := series.Of([]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 100})
	v, _ = BollingerOscillator(spike, 10, 0.5).Last().Get()
	assert.Equal(t, 100.0, v)
}

func TestWaveTrendFlagInPersistentSelloff(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 200 - 0.5*float64(i)
	}
	sig := NewWaveTrendGenerator(DefaultWaveTrendConfig()).Evaluate(pathCandles(closes, 0.1, nil))
	d := sig.Details.(WaveTrendDetails)
	assert.Less(t, d.WT1, -53.0)
	assert.Less(t, d.WT2, -53.0)
	assert.Less(t, d.RSI, 30.0)
	assert.Less(t, d.MFI, 20.0)
	assert.Equal(t, Buy, sig.Signal)
	assert.NotEmpty(t, d.Kind)
}

func TestWaveTrendUndefinedOnFlatPrice(t *testing.T) {
	candles := make([]market.Candle, 80)
	for i := range candles {
		candles[i] = bar(50, 50, 50, 50, 10)
	}
	wt1, _ := WaveTrendLines(candles, 10, 21, 4)
	assert.Equal(t, 0, wt1.ValidCount())
	sig := NewWaveTrendGenerator(WaveTrendConfig{}).Evaluate(candles)
	assert.Equal(t, None, sig.Signal)
}

func whaleFixture(last market.Candle) []market.Candle {
	candles := make([]market.Candle, 0, 21)
	price := 100.0
	for i := 0; i < 20; i++ {
		candles = append(candles, bar(price, price+0.1, price-0.1, price+0.02, 100))
		price += 0.02
	}
	return stamp(append(candles, last))
}

func TestWhaleSpikeBuy(t *testing.T) {
	candles := whaleFixture(bar(100.4, 102.6, 100.3, 102.4, 500))
	sig := NewWhaleGenerator(DefaultWhaleConfig()).Evaluate(candles)
	d := sig.Details.(WhaleDetails)
	assert.True(t, d.Anomaly)
	assert.InDelta(t, 5.0, d.VolumeRatio, 1e-9)
	assert.GreaterOrEqual(t, d.BodyRatio, 0.6)
	assert.Greater(t, 102.4, d.VWAP)
	assert.Equal(t, Buy, sig.Signal)
	assert.Equal(t, WhaleAccumulation, d.Activity)
	assert.Nil(t, d.Flow)
}

func TestWhaleNeedsFullConfluence(t *testing.T) {
	g := NewWhaleGenerator(DefaultWhaleConfig())

	// long wicks: body ratio below threshold
	wicky := whaleFixture(bar(100.4, 104, 98, 101.4, 500))
	assert.Equal(t, None, g.Evaluate(wicky).Signal)

	// ordinary volume
	quiet := whaleFixture(bar(100.4, 102.6, 100.3, 102.4, 150))
	assert.Equal(t, None, g.Evaluate(quiet).Signal)

	// bearish spike below VWAP
	dump := whaleFixture(bar(100.4, 100.5, 97.8, 98, 500))
	sig := g.Evaluate(dump)
	assert.Equal(t, Sell, sig.Signal)
	assert.Equal(t, WhaleDistribution, sig.Details.(WhaleDetails).Activity)
}

func TestWhaleReportsTakerFlow(t *testing.T) {
	candles := whaleFixture(bar(100.4, 102.6, 100.3, 102.4, 500))
	for i := range candles {
		candles[i].TakerBuyVolume = candles[i].Volume * 0.7
		candles[i].TakerSellVolume = candles[i].Volume * 0.3
	}
	d := NewWhaleGenerator(WhaleConfig{}).Evaluate(candles).Details.(WhaleDetails)
	require.NotNil(t, d.Flow)
	assert.Equal(t, "0.7", d.Flow.BuyShare.String())
}

func TestMatchDivergencesRegularBullish(t *testing.T) {
	price := []series.Pivot{{Index: 10, Value: 100}, {Index: 30, Value: 95}}
	rsi := []series.Pivot{{Index: 11, Value: 25}, {Index: 29, Value: 32}}
	got := MatchDivergences(price, rsi, BullishDivergence, DefaultDivergenceConfig())
	require.Len(t, got, 1)
	assert.Equal(t, RegularDivergence, got[0].Type)
	assert.Equal(t, 30, got[0].EndIndex)
	assert.Equal(t, 32.0, got[0].RSIEnd)
}

func TestMatchDivergencesLockStepIsNotRegular(t *testing.T) {
	price := []series.Pivot{{Index: 10, Value: 100}, {Index: 25, Value: 101}, {Index: 40, Value: 103}}
	rsi := []series.Pivot{{Index: 10, Value: 30}, {Index: 26, Value: 31}, {Index: 40, Value: 35}}
	for _, d := range MatchDivergences(price, rsi, BullishDivergence, DefaultDivergenceConfig()) {
		assert.NotEqual(t, RegularDivergence, d.Type)
	}

	falling := []series.Pivot{{Index: 10, Value: 100}, {Index: 25, Value: 98}}
	rsiFalling := []series.Pivot{{Index: 10, Value: 30}, {Index: 25, Value: 28}}
	assert.Empty(t, MatchDivergences(falling, rsiFalling, BullishDivergence, DefaultDivergenceConfig()))
}

func TestMatchDivergencesHiddenAndTolerance(t *testing.T) {
	cfg := DefaultDivergenceConfig()
	price := []series.Pivot{{Index: 10, Value: 100}, {Index: 30, Value: 104}}

	rsi := []series.Pivot{{Index: 12, Value: 60}, {Index: 31, Value: 52}}
	got := MatchDivergences(price, rsi, BullishDivergence, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, HiddenDivergence, got[0].Type)

	bear := MatchDivergences(price, rsi, BearishDivergence, cfg)
	require.Len(t, bear, 1)
	assert.Equal(t, RegularDivergence, bear[0].Type)

	far := []series.Pivot{{Index: 13, Value: 60}, {Index: 31, Value: 52}}
	assert.Empty(t, MatchDivergences(price, far, BullishDivergence, cfg))

	near := []series.Pivot{{Index: 10, Value: 100}, {Index: 13, Value: 90}}
	assert.Empty(t, MatchDivergences(near, rsi, BullishDivergence, cfg), "pivots closer than MinBars")
}

func TestOrderBlockRetest(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			candles = append(candles, bar(100, 100.3, 99.9, 100.2, 100))
		} else {
			candles = append(candles, bar(100.2, 100.3, 99.9, 100, 100))
		}
	}
	candles = append(candles,
		bar(100.2, 100.3, 99.7, 99.8, 300), // the block
		bar(99.8, 101.9, 99.7, 101.8, 100),
		bar(101.8, 103.9, 101.7, 103.8, 100),
		bar(103.8, 105.9, 103.7, 105.8, 100),
		bar(105.8, 105.9, 100.4, 100.5, 100), // back into the block
	)
	sig := NewOrderBlockGenerator(DefaultOrderBlockConfig()).Evaluate(stamp(candles))
	d := sig.Details.(OrderBlockDetails)
	require.Len(t, d.Blocks, 1)
	assert.Equal(t, BullishBlock, d.Blocks[0].Kind)
	assert.Equal(t, 30, d.Blocks[0].Index)
	assert.InDelta(t, 3.0, d.Blocks[0].StrengthRatio, 1e-9)
	require.NotNil(t, d.TestedBullish)
	assert.Nil(t, d.TestedBearish)
	assert.Equal(t, Buy, sig.Signal)
}

func TestOrderBlockNeedsStrongMove(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 80; i++ {
		base := 100 + float64(i%4)
		if i%2 == 0 {
			candles = append(candles, bar(base, base+2, base-0.1, base+1.9, 100+float64(i*7%50)))
		} else {
			candles = append(candles, bar(base+1.9, base+2, base-0.1, base, 100+float64(i*7%50)))
		}
	}
	g := NewOrderBlockGenerator(DefaultOrderBlockConfig())
	atr := series.ATR(candles, 14)
	assert.Empty(t, FindOrderBlocks(candles, atr, DefaultOrderBlockConfig()))
	assert.Equal(t, None, g.Evaluate(stamp(candles)).Signal)
}

func mirror(c market.Candle) market.Candle {
	const m = 300.0
	return bar(m-c.Open, m-c.Low, m-c.High, m-c.Close, c.Volume)
}

func TestTrendSellOnBouncePivot(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 40; i++ {
		c := 100 + float64(i)
		candles = append(candles, mirror(bar(c-1, c+0.2, c-1.2, c, 1000)))
	}
	for _, b := range []market.Candle{
		bar(139, 139.2, 136.3, 136.5, 1000),
		bar(136.5, 136.7, 133.8, 134, 1000),
		bar(134, 134.2, 131.3, 131.5, 1000),
		bar(131.5, 133.2, 131.4, 133, 1000),
		bar(133, 135.2, 132.8, 135, 1000),
	} {
		candles = append(candles, mirror(b))
	}
	sig := NewTrendGenerator(DefaultTrendConfig()).Evaluate(stamp(candles))
	d := sig.Details.(TrendDetails)
	assert.True(t, d.PivotHigh)
	assert.False(t, d.PivotLow)
	assert.Equal(t, 42, d.PivotIndex)
	assert.Greater(t, d.ADX, 25.0)
	assert.Greater(t, d.MinusDI, d.PlusDI)
	assert.Less(t, d.Momentum, 0.0)
	assert.Equal(t, Sell, sig.Signal)
}

func TestKoncordeSellOnQuietRally(t *testing.T) {
	closes := make([]float64, 315)
	price := 100.0
	for i := range closes {
		if i >= 300 {
			price *= 1.01
		}
		closes[i] = price
	}
	volume := func(i int) float64 {
		if i < 300 {
			return 1000
		}
		return 1000 - 10*float64(i-299)
	}
	candles := pathCandles(closes, 0.1, volume)

	sig := NewKoncordeGenerator(DefaultKoncordeConfig()).Evaluate(candles)
	d := sig.Details.(KoncordeDetails)
	assert.Equal(t, 1000.0, d.PVI)
	assert.Greater(t, d.NVI, 1000.0)
	assert.Less(t, d.Strength, 0.0)
	assert.Greater(t, d.MFI, 80.0)
	assert.Greater(t, d.Oscillator, 50.0)
	assert.Equal(t, Sell, sig.Signal)
}

func sineCandles(n int) []market.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/8)
	}
	return pathCandles(closes, 0.1, nil)
}

func TestWaveTrendDiamondBeatsFlag(t *testing.T) {
	candles := sineCandles(300)
	g := NewWaveTrendGenerator(DefaultWaveTrendConfig())

	// bar 138: stretched lows without a cross
	sig := g.Evaluate(candles[:139])
	d := sig.Details.(WaveTrendDetails)
	assert.Equal(t, Buy, sig.Signal)
	assert.Equal(t, WaveTrendFlag, d.Kind)
	assert.False(t, d.Diamond)

	// bar 139: WT1 crosses WT2 while the flag conditions still hold
	sig = g.Evaluate(candles[:140])
	d = sig.Details.(WaveTrendDetails)
	assert.Less(t, d.WT1, -53.0)
	assert.Less(t, d.WT2, -53.0)
	assert.Greater(t, d.WT1, d.WT2)
	assert.Less(t, d.RSI, 30.0)
	assert.Less(t, d.MFI, 20.0)
	assert.Equal(t, Buy, sig.Signal)
	assert.Equal(t, WaveTrendDiamond, d.Kind)
	assert.True(t, d.Diamond)
}

func TestWaveTrendBearishDiamond(t *testing.T) {
	candles := sineCandles(300)
	g := NewWaveTrendGenerator(DefaultWaveTrendConfig())
	for _, n := range []int{65, 115} {
		sig := g.Evaluate(candles[:n])
		d := sig.Details.(WaveTrendDetails)
		assert.Equal(t, Sell, sig.Signal, "bar %d", n-1)
		assert.Equal(t, WaveTrendDiamond, d.Kind, "bar %d", n-1)
		assert.Greater(t, d.WT1, 40.0)
		assert.Less(t, d.WT1, d.WT2)
		assert.Greater(t, d.RSI, 60.0)
	}
}

// doji candles keep lows strictly ordered with closes.
func divergencePath() []market.Candle {
	var closes []float64
	p := 100.0
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			p += 0.3
		} else {
			p -= 0.3
		}
		closes = append(closes, p)
	}
	steps := []struct {
		n    int
		step float64
	}{{8, -2}, {8, 1}, {14, -0.7}, {8, 0.8}}
	for _, s := range steps {
		for i := 0; i < s.n; i++ {
			p += s.step
			closes = append(closes, p)
		}
	}
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = bar(c, c+0.5, c-0.5, c, 1000)
	}
	return stamp(out)
}

func TestDivergenceGeneratorRegularBullish(t *testing.T) {
	candles := divergencePath()
	require.Len(t, candles, 68)

	sig := NewDivergenceGenerator(DefaultDivergenceConfig()).Evaluate(candles)
	d := sig.Details.(DivergenceDetails)
	assert.Equal(t, Buy, sig.Signal)
	assert.True(t, d.Regular)
	require.Len(t, d.Divergences, 1)
	div := d.Divergences[0]
	assert.Equal(t, RegularDivergence, div.Type)
	assert.Equal(t, BullishDivergence, div.Polarity)
	assert.Equal(t, 37, div.StartIndex)
	assert.Equal(t, 59, div.EndIndex)
	assert.Less(t, div.PriceEnd, div.PriceStart)
	assert.Greater(t, div.RSIEnd, div.RSIStart)
}

func TestDivergenceGeneratorActiveWindow(t *testing.T) {
	candles := divergencePath()
	cfg := DefaultDivergenceConfig()

	// the later pivot sits 8 bars before the end
	cfg.ActiveWindow = 8
	assert.Equal(t, Buy, NewDivergenceGenerator(cfg).Evaluate(candles).Signal)

	cfg.ActiveWindow = 7
	sig := NewDivergenceGenerator(cfg).Evaluate(candles)
	assert.Equal(t, None, sig.Signal)
	assert.Empty(t, sig.Details.(DivergenceDetails).Divergences)
}

func TestActiveSide(t *testing.T) {
	regular := func(p DivergencePolarity, end int) PriceDivergence {
		return PriceDivergence{Type: RegularDivergence, Polarity: p, EndIndex: end}
	}
	hidden := func(p DivergencePolarity, end int) PriceDivergence {
		return PriceDivergence{Type: HiddenDivergence, Polarity: p, EndIndex: end}
	}

	side, active := activeSide([]PriceDivergence{regular(BullishDivergence, 90), regular(BearishDivergence, 95)}, 80)
	assert.Equal(t, Sell, side, "newer polarity wins")
	assert.Len(t, active, 2)

	side, _ = activeSide([]PriceDivergence{regular(BullishDivergence, 95), regular(BearishDivergence, 95)}, 80)
	assert.Equal(t, None, side, "same bar cancels out")

	side, active = activeSide([]PriceDivergence{hidden(BullishDivergence, 95), hidden(BearishDivergence, 90)}, 80)
	assert.Equal(t, None, side, "hidden divergences do not vote")
	assert.Len(t, active, 2)

	side, active = activeSide([]PriceDivergence{regular(BearishDivergence, 70), regular(BullishDivergence, 85)}, 80)
	assert.Equal(t, Buy, side)
	assert.Len(t, active, 1, "stale divergence dropped")
}

func TestDivergenceDefaultTolerance(t *testing.T) {
	g := NewDivergenceGenerator(DivergenceConfig{})
	assert.Equal(t, 2, g.cfg.Tolerance)
	assert.Equal(t, 2, Config{}.Normalize().Divergence.Tolerance)
}

func TestOrderBlockExpiresWithAge(t *testing.T) {
	var candles []market.Candle
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			candles = append(candles, bar(100, 100.3, 99.9, 100.2, 100))
		} else {
			candles = append(candles, bar(100.2, 100.3, 99.9, 100, 100))
		}
	}
	candles = stamp(append(candles,
		bar(100.2, 100.3, 99.7, 99.8, 300),
		bar(99.8, 101.9, 99.7, 101.8, 100),
		bar(101.8, 103.9, 101.7, 103.8, 100),
		bar(103.8, 105.9, 103.7, 105.8, 100),
		bar(105.8, 105.9, 100.4, 100.5, 100),
	))

	// the block at index 30 is 4 bars old
	cfg := DefaultOrderBlockConfig()
	cfg.MaxOrderBlockAge = 4
	assert.Equal(t, Buy, NewOrderBlockGenerator(cfg).Evaluate(candles).Signal)

	cfg.MaxOrderBlockAge = 3
	sig := NewOrderBlockGenerator(cfg).Evaluate(candles)
	assert.Equal(t, None, sig.Signal)
	assert.Empty(t, sig.Details.(OrderBlockDetails).Blocks)
}
