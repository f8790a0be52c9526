package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signalhub/internal/analysis/indicator"
	"signalhub/internal/backtest"
	"signalhub/internal/convergence"
	"signalhub/internal/gateway/database"
	"signalhub/internal/logger"
	"signalhub/internal/market"
	"signalhub/internal/metrics"
	"signalhub/internal/store"
)

// ResultCache 缓存同一根 K 线上的评估结果。
type ResultCache interface {
	Get(ctx context.Context, symbol, interval string, candleTime int64) (convergence.Result, bool, error)
	Set(ctx context.Context, symbol, interval string, candleTime int64, res convergence.Result) error
}

// SignalLog 持久化评估结果。
type SignalLog interface {
	Save(ctx context.Context, symbol, interval string, res convergence.Result) (int64, error)
	Latest(ctx context.Context, symbol, interval string) (database.SignalRecord, error)
	List(ctx context.Context, symbol, interval string, limit int, onlyActive bool) ([]database.SignalRecord, error)
}

// FundingSource 可选：资金费率。
type FundingSource interface {
	GetFundingRate(ctx context.Context, symbol string) (float64, error)
}

// RangeSource 可选：按时间区间拉取。
type RangeSource interface {
	FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error)
}

// ErrLogDisabled 表示未配置信号日志。
var ErrLogDisabled = errors.New("signal log is not configured")

type Service struct {
	source       market.Source
	candles      *store.MemoryCandleStore
	engine       *convergence.Engine
	cache        ResultCache
	log          SignalLog
	metrics      *metrics.Metrics
	historyLimit int
	indicators   indicator.Settings
}

type ServiceParams struct {
	Source  market.Source
	Candles *store.MemoryCandleStore
	Engine  *convergence.Engine
	// Cache 与 Log 均可为 nil。
	Cache        ResultCache
	Log          SignalLog
	Metrics      *metrics.Metrics
	HistoryLimit int
	Indicators   indicator.Settings
}

func NewService(p ServiceParams) *Service {
	if p.Candles == nil {
		p.Candles = store.NewMemoryCandleStore()
	}
	if p.HistoryLimit <= 0 {
		p.HistoryLimit = 500
	}
	if w := p.Engine.Warmup(); p.HistoryLimit < w {
		p.HistoryLimit = w
	}
	return &Service{
		source:       p.Source,
		candles:      p.Candles,
		engine:       p.Engine,
		cache:        p.Cache,
		log:          p.Log,
		metrics:      p.Metrics,
		historyLimit: p.HistoryLimit,
		indicators:   p.Indicators,
	}
}

func (s *Service) Engine() *convergence.Engine { return s.engine }

func normalize(symbol, interval string) (string, string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	iv := strings.TrimSpace(interval)
	if sym == "" || iv == "" {
		return "", "", errors.New("symbol and interval are required")
	}
	return sym, iv, nil
}

// Candles 拉取最新 K 线并写入内存缓存；拉取失败但缓存非空时退回缓存。
func (s *Service) Candles(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	sym, iv, err := normalize(symbol, interval)
	if err != nil {
		return nil, err
	}
	if s.source != nil {
		fresh, ferr := s.source.FetchHistory(ctx, sym, iv, s.historyLimit)
		if ferr == nil {
			if err := s.candles.Put(ctx, sym, iv, fresh, s.historyLimit); err != nil {
				return nil, err
			}
		} else {
			logger.Warnf("service: fetch %s %s failed, falling back to cache: %v", sym, iv, ferr)
			err = ferr
		}
	}
	window, werr := s.candles.Window(ctx, sym, iv, s.historyLimit)
	if werr != nil {
		if err != nil {
			return nil, fmt.Errorf("fetch %s %s: %w", sym, iv, err)
		}
		return nil, werr
	}
	return window, nil
}

// Evaluate 对 symbol/interval 的最新窗口做一次汇总评估，结果写入缓存与日志。
func (s *Service) Evaluate(ctx context.Context, symbol, interval string) (convergence.Result, error) {
	sym, iv, err := normalize(symbol, interval)
	if err != nil {
		return convergence.Result{}, err
	}
	candles, err := s.Candles(ctx, sym, iv)
	if err != nil {
		return convergence.Result{}, err
	}
	candleTime := candles[len(candles)-1].OpenTime

	if s.cache != nil {
		cached, ok, cerr := s.cache.Get(ctx, sym, iv, candleTime)
		if cerr != nil {
			logger.Warnf("service: cache get %s %s: %v", sym, iv, cerr)
		}
		s.metrics.ObserveCache(ok)
		if ok {
			return cached, nil
		}
	}

	res, err := s.engine.Evaluate(ctx, candles)
	if err != nil {
		return convergence.Result{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, sym, iv, candleTime, res); err != nil {
			logger.Warnf("service: cache set %s %s: %v", sym, iv, err)
		}
	}
	if s.log != nil {
		if _, err := s.log.Save(ctx, sym, iv, res); err != nil {
			logger.Warnf("service: save %s %s: %v", sym, iv, err)
		}
	}
	logger.Debugf("service: %s %s -> %s (%.2f%%)", sym, iv, res.Signal, res.ConfidencePercent)
	return res, nil
}

// EvaluateCandles 直接评估调用方提供的 K 线，不读写缓存。
func (s *Service) EvaluateCandles(ctx context.Context, candles []market.Candle) (convergence.Result, error) {
	if len(candles) == 0 {
		return convergence.Result{}, errors.New("no candles")
	}
	return s.engine.Evaluate(ctx, candles)
}

func (s *Service) Latest(ctx context.Context, symbol, interval string) (database.SignalRecord, error) {
	if s.log == nil {
		return database.SignalRecord{}, ErrLogDisabled
	}
	sym, iv, err := normalize(symbol, interval)
	if err != nil {
		return database.SignalRecord{}, err
	}
	return s.log.Latest(ctx, sym, iv)
}

// History interval 可为空。
func (s *Service) History(ctx context.Context, symbol, interval string, limit int, onlyActive bool) ([]database.SignalRecord, error) {
	if s.log == nil {
		return nil, ErrLogDisabled
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return nil, errors.New("symbol is required")
	}
	return s.log.List(ctx, sym, interval, limit, onlyActive)
}

// Snapshot 指标快照，附带资金费率与数据源状态。
type Snapshot struct {
	Report      indicator.Report   `json:"report"`
	FundingRate *float64           `json:"funding_rate,omitempty"`
	Source      market.SourceStats `json:"source"`
}

func (s *Service) Snapshot(ctx context.Context, symbol, interval string) (Snapshot, error) {
	candles, err := s.Candles(ctx, symbol, interval)
	if err != nil {
		return Snapshot{}, err
	}
	settings := s.indicators
	settings.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	settings.Interval = strings.TrimSpace(interval)
	rep, err := indicator.ComputeAll(candles, settings)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Report: rep}
	if s.source != nil {
		snap.Source = s.source.Stats()
	}
	if fs, ok := s.source.(FundingSource); ok {
		rate, err := fs.GetFundingRate(ctx, settings.Symbol)
		if err != nil {
			snap.Report.Warnings = append(snap.Report.Warnings, "funding rate: "+err.Error())
		} else {
			snap.FundingRate = &rate
		}
	}
	return snap, nil
}

// LoadBacktest 为回测任务加载 K 线，可直接作为 backtest.Loader。
func (s *Service) LoadBacktest(ctx context.Context, p backtest.Params) ([]market.Candle, error) {
	if s.source == nil {
		return nil, errors.New("no candle source configured")
	}
	if p.Start > 0 {
		rs, ok := s.source.(RangeSource)
		if !ok {
			return nil, errors.New("candle source does not support ranges")
		}
		end := time.Now()
		if p.End > 0 {
			end = time.UnixMilli(p.End)
		}
		candles, err := rs.FetchRange(ctx, p.Symbol, p.Interval, time.UnixMilli(p.Start), end)
		if err != nil {
			return nil, err
		}
		if p.Limit > 0 && len(candles) > p.Limit {
			candles = candles[len(candles)-p.Limit:]
		}
		return candles, nil
	}
	return s.source.FetchHistory(ctx, p.Symbol, p.Interval, p.Limit)
}
