package convergence

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"signalhub/internal/logger"
	"signalhub/internal/market"
	"signalhub/internal/metrics"
	"signalhub/internal/signals"
)

// Engine fans a candle window out to every generator and aggregates the
// results. It holds no per-call state and is safe for concurrent use.
//
// Each call is O(n) per generator; re-evaluating an expanding window over a
// full history is therefore O(n²).
type Engine struct {
	generators []signals.Generator
	cfg        Config
	metrics    *metrics.Metrics
}

type Option func(*Engine)

// WithMetrics records evaluation counters and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine wires explicit generators.
func NewEngine(generators []signals.Generator, cfg Config, opts ...Option) *Engine {
	e := &Engine{generators: generators, cfg: cfg.Normalize()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// New builds the seven default generators from sigCfg.
func New(sigCfg signals.Config, cfg Config, opts ...Option) *Engine {
	return NewEngine(signals.NewGenerators(sigCfg), cfg, opts...)
}

func (e *Engine) Config() Config { return e.cfg }

// Warmup is the largest MinCandles of all generators.
func (e *Engine) Warmup() int {
	out := 0
	for _, g := range e.generators {
		if n := g.MinCandles(); n > out {
			out = n
		}
	}
	return out
}

// Evaluate runs every generator on candles and aggregates the signals. A
// generator that panics contributes NONE and is listed in Result.Failures.
// The only error is a cancelled context.
func (e *Engine) Evaluate(ctx context.Context, candles []market.Candle) (Result, error) {
	start := time.Now()
	sigs, failures, err := e.run(ctx, candles)
	if err != nil {
		return Result{}, err
	}
	res := Aggregate(sigs, e.cfg)
	if len(failures) > 0 {
		res.Failures = failures
	}
	if e.metrics != nil {
		e.metrics.ObserveEvaluation(string(res.Signal), time.Since(start))
		for _, s := range sigs {
			e.metrics.ObserveIndicator(string(s.Indicator), string(s.Signal))
		}
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, candles []market.Candle) ([]signals.IndicatorSignal, map[signals.Name]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	sigs := make([]signals.IndicatorSignal, len(e.generators))
	errs := make([]error, len(e.generators))

	g, gctx := errgroup.WithContext(ctx)
	if e.cfg.Workers > 0 {
		g.SetLimit(e.cfg.Workers)
	}
	for i, gen := range e.generators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sigs[i], errs[i] = signals.Safe(gen, candles)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var failures map[signals.Name]string
	for i, err := range errs {
		if err == nil {
			continue
		}
		name := e.generators[i].Name()
		if failures == nil {
			failures = make(map[signals.Name]string)
		}
		failures[name] = err.Error()
		logger.Warnf("convergence: %v", err)
		e.metrics.ObserveFailure(string(name))
	}
	return sigs, failures, nil
}
