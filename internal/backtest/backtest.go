// Package backtest replays the convergence engine over a candle history.
//
// Every bar after warm-up is evaluated on the full window up to and including
// that bar, so a run over n candles costs O(n²) generator work. Bars are
// independent and are spread over a bounded worker pool.
package backtest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"signalhub/internal/convergence"
	"signalhub/internal/market"
	"signalhub/internal/signals"
)

// Evaluator is the part of convergence.Engine a replay needs.
type Evaluator interface {
	Evaluate(ctx context.Context, candles []market.Candle) (convergence.Result, error)
	Warmup() int
}

type Options struct {
	Symbol   string
	Interval string
	// Horizon is the number of bars after a decision at which the forward
	// return is read.
	Horizon int
	Workers int
	// Progress, when set, is called after every evaluated bar.
	Progress func(done, total int)
}

func (o Options) withDefaults() Options {
	if o.Horizon <= 0 {
		o.Horizon = 12
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// Decision is one non-NONE result of the replay.
type Decision struct {
	Index        int            `json:"index"`
	OpenTime     int64          `json:"open_time"`
	Signal       signals.Side   `json:"signal"`
	Confidence   float64        `json:"confidence_percent"`
	Close        float64        `json:"close"`
	Contributing []signals.Name `json:"contributing_indicators"`
	Conflicts    []string       `json:"conflicts,omitempty"`
	// Resolved is false when fewer than Horizon bars follow the decision.
	Resolved  bool            `json:"resolved"`
	ExitClose float64         `json:"exit_close,omitempty"`
	Return    decimal.Decimal `json:"return_percent"`
	Hit       bool            `json:"hit"`
}

// edge is the return in the decision's favour.
func (d Decision) edge() decimal.Decimal {
	if d.Signal == signals.Sell {
		return d.Return.Neg()
	}
	return d.Return
}

type SideStats struct {
	Count    int             `json:"count"`
	Resolved int             `json:"resolved"`
	Hits     int             `json:"hits"`
	HitRate  float64         `json:"hit_rate"`
	AvgEdge  decimal.Decimal `json:"avg_edge_percent"`
}

type IndicatorCount struct {
	Buy  int `json:"buy"`
	Sell int `json:"sell"`
}

type Report struct {
	Symbol       string                          `json:"symbol"`
	Interval     string                          `json:"interval"`
	Candles      int                             `json:"candles"`
	Warmup       int                             `json:"warmup"`
	Horizon      int                             `json:"horizon"`
	Evaluated    int                             `json:"evaluated"`
	Decisions    []Decision                      `json:"decisions"`
	Buy          SideStats                       `json:"buy"`
	Sell         SideStats                       `json:"sell"`
	PerIndicator map[signals.Name]IndicatorCount `json:"per_indicator"`
	Failures     int                             `json:"generator_failures"`
	Integrity    *IntegrityReport                `json:"integrity,omitempty"`
}

// Run replays ev over candles. It fails only when there is not enough history
// for a single evaluation or ctx is cancelled.
func Run(ctx context.Context, ev Evaluator, candles []market.Candle, opts Options) (Report, error) {
	opts = opts.withDefaults()
	warmup := ev.Warmup()
	if warmup < 1 {
		warmup = 1
	}
	rep := Report{
		Symbol:       opts.Symbol,
		Interval:     opts.Interval,
		Candles:      len(candles),
		Warmup:       warmup,
		Horizon:      opts.Horizon,
		Decisions:    []Decision{},
		PerIndicator: make(map[signals.Name]IndicatorCount),
	}
	if len(candles) < warmup {
		return rep, fmt.Errorf("backtest needs at least %d candles, got %d", warmup, len(candles))
	}
	if tf, err := ParseTimeframe(opts.Interval); err == nil {
		integrity := CheckIntegrity(candles, tf)
		rep.Integrity = &integrity
	}

	first := warmup - 1
	total := len(candles) - first
	results := make([]convergence.Result, total)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for k := 0; k < total; k++ {
		g.Go(func() error {
			res, err := ev.Evaluate(gctx, candles[:first+k+1])
			if err != nil {
				return err
			}
			results[k] = res
			n := done.Add(1)
			if opts.Progress != nil {
				opts.Progress(int(n), total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	rep.Evaluated = total

	for k, res := range results {
		i := first + k
		rep.Failures += len(res.Failures)
		for _, s := range res.PerIndicatorSignals {
			c := rep.PerIndicator[s.Indicator]
			switch s.Signal {
			case signals.Buy:
				c.Buy++
			case signals.Sell:
				c.Sell++
			default:
				continue
			}
			rep.PerIndicator[s.Indicator] = c
		}
		if res.Signal == signals.None {
			continue
		}
		rep.Decisions = append(rep.Decisions, decide(candles, i, opts.Horizon, res))
	}
	rep.Buy = summarize(rep.Decisions, signals.Buy)
	rep.Sell = summarize(rep.Decisions, signals.Sell)
	return rep, nil
}

func decide(candles []market.Candle, i, horizon int, res convergence.Result) Decision {
	d := Decision{
		Index:        i,
		OpenTime:     candles[i].OpenTime,
		Signal:       res.Signal,
		Confidence:   res.ConfidencePercent,
		Close:        candles[i].Close,
		Contributing: res.ContributingIndicators,
		Conflicts:    res.Conflicts,
		Return:       decimal.Zero,
	}
	exit := i + horizon
	if exit >= len(candles) || d.Close == 0 {
		return d
	}
	d.Resolved = true
	d.ExitClose = candles[exit].Close
	entry := decimal.NewFromFloat(d.Close)
	d.Return = decimal.NewFromFloat(d.ExitClose).Sub(entry).Div(entry).Mul(decimal.NewFromInt(100)).Round(4)
	d.Hit = d.edge().IsPositive()
	return d
}

func summarize(decisions []Decision, side signals.Side) SideStats {
	st := SideStats{AvgEdge: decimal.Zero}
	sum := decimal.Zero
	for _, d := range decisions {
		if d.Signal != side {
			continue
		}
		st.Count++
		if !d.Resolved {
			continue
		}
		st.Resolved++
		sum = sum.Add(d.edge())
		if d.Hit {
			st.Hits++
		}
	}
	if st.Resolved > 0 {
		st.HitRate = float64(st.Hits) / float64(st.Resolved)
		st.AvgEdge = sum.Div(decimal.NewFromInt(int64(st.Resolved))).Round(4)
	}
	return st
}
