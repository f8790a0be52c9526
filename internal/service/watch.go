package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"signalhub/internal/config"
	"signalhub/internal/convergence"
	"signalhub/internal/logger"
	"signalhub/internal/signals"
	"signalhub/internal/store"
)

// WatchResult 是一次关注列表评估中单个条目的结果。
type WatchResult struct {
	Symbol   string              `json:"symbol"`
	Interval string              `json:"interval"`
	Result   *convergence.Result `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// EvaluateWatchlist 并发评估所有条目，单个失败不影响其他条目。
func (s *Service) EvaluateWatchlist(ctx context.Context, entries []config.WatchEntry, workers int) []WatchResult {
	out := make([]WatchResult, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, e := range entries {
		out[i] = WatchResult{Symbol: e.Symbol, Interval: e.Interval}
		g.Go(func() error {
			res, err := s.Evaluate(gctx, e.Symbol, e.Interval)
			if err != nil {
				out[i].Error = err.Error()
				return nil
			}
			out[i].Result = &res
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// WatchlistProvider 返回当前关注列表（配置热更新时可变）。
type WatchlistProvider func() []config.WatchEntry

// Watcher 周期性评估关注列表，并在信号方向变化时回调。
type Watcher struct {
	svc      *Service
	provider WatchlistProvider
	every    time.Duration
	workers  int
	onChange func(WatchResult)

	mu   sync.Mutex
	last map[string]signals.Side
}

type WatcherParams struct {
	Service  *Service
	Provider WatchlistProvider
	Every    time.Duration
	Workers  int
	OnChange func(WatchResult)
}

func NewWatcher(p WatcherParams) *Watcher {
	if p.Every <= 0 {
		p.Every = time.Minute
	}
	return &Watcher{
		svc:      p.Service,
		provider: p.Provider,
		every:    p.Every,
		workers:  p.Workers,
		onChange: p.OnChange,
		last:     make(map[string]signals.Side),
	}
}

// Run 阻塞直到 ctx 取消；启动时立即执行一轮。
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.every)
	defer ticker.Stop()
	for {
		w.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick 执行一轮评估，返回本轮结果。
func (w *Watcher) Tick(ctx context.Context) []WatchResult {
	entries := w.provider()
	if len(entries) == 0 {
		return nil
	}
	results := w.svc.EvaluateWatchlist(ctx, entries, w.workers)
	for _, r := range results {
		if r.Error != "" {
			logger.Warnf("watch: %s %s: %s", r.Symbol, r.Interval, r.Error)
			continue
		}
		if w.changed(r) {
			logger.Infof("watch: %s %s -> %s confidence=%.2f%% contributing=%v",
				r.Symbol, r.Interval, r.Result.Signal, r.Result.ConfidencePercent, r.Result.ContributingIndicators)
			if w.onChange != nil {
				w.onChange(r)
			}
		}
	}
	return results
}

func (w *Watcher) changed(r WatchResult) bool {
	key := store.Key(r.Symbol, r.Interval)
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, seen := w.last[key]
	w.last[key] = r.Result.Signal
	if !seen {
		return r.Result.Signal != signals.None
	}
	return prev != r.Result.Signal
}
