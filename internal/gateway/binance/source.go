package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"signalhub/internal/logger"
	"signalhub/internal/market"
	"signalhub/internal/metrics"
)

const maxHistoryLimit = 1500

// Source 实现了 market.Source，通过 U 本位合约 REST 接口拉取历史 K 线。
// 请求先经过令牌桶限速，再经过熔断器，连续失败后短时间内直接拒绝。
type Source struct {
	cfg     Config
	client  *futures.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics

	mu    sync.Mutex
	stats market.SourceStats
}

func New(cfg Config, m *metrics.Metrics) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.SecretKey)
	client.BaseURL = strings.TrimRight(final.RESTBaseURL, "/")
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}

	perSec := float64(final.RateLimitPerMin) / 60
	burst := final.RateLimitPerMin / 60
	if burst < 1 {
		burst = 1
	}
	s := &Source{
		cfg:     final,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		metrics: m,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "binance-futures",
		Timeout: final.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= final.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("[binance] 熔断器 %s: %s -> %s", name, from, to)
		},
	})
	return s, nil
}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.fetch(ctx, symbol, interval, limit, 0, 0)
}

// FetchRange 分页拉取 [start, end] 区间内的 K 线，用于回测。
func (s *Source) FetchRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Candle, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("end must be after start")
	}
	var out []market.Candle
	cursor := start.UnixMilli()
	endMs := end.UnixMilli()
	for cursor <= endMs {
		page, err := s.fetch(ctx, symbol, interval, maxHistoryLimit, cursor, endMs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		next := page[len(page)-1].OpenTime + 1
		if next <= cursor || len(page) < maxHistoryLimit {
			break
		}
		cursor = next
	}
	return out, nil
}

func (s *Source) fetch(ctx context.Context, symbol, interval string, limit int, startMs, endMs int64) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	logger.Debugf("[binance] klines %s %s limit=%d start=%d end=%d", symbol, interval, limit, startMs, endMs)
	res, err := s.breaker.Execute(func() (interface{}, error) {
		svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
		if startMs > 0 {
			svc = svc.StartTime(startMs)
		}
		if endMs > 0 {
			svc = svc.EndTime(endMs)
		}
		return svc.Do(ctx)
	})
	s.record(err)
	if err != nil {
		if breakerRejected(err) {
			return nil, fmt.Errorf("binance unavailable: %w", err)
		}
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}
	klines, _ := res.([]*futures.Kline)
	out := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		if k == nil {
			continue
		}
		out = append(out, toCandle(k))
	}
	return out, nil
}

// breakerRejected 熔断器拒绝的请求不会到达交易所。
func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func toCandle(k *futures.Kline) market.Candle {
	volume := parseFloat(k.Volume)
	takerBuy := parseFloat(k.TakerBuyBaseAssetVolume)
	takerSell := volume - takerBuy
	if takerSell < 0 {
		takerSell = 0
	}
	return market.Candle{
		OpenTime:        k.OpenTime,
		CloseTime:       k.CloseTime,
		Open:            parseFloat(k.Open),
		High:            parseFloat(k.High),
		Low:             parseFloat(k.Low),
		Close:           parseFloat(k.Close),
		Volume:          volume,
		Trades:          k.TradeNum,
		TakerBuyVolume:  takerBuy,
		TakerSellVolume: takerSell,
	}
}

func (s *Source) record(err error) {
	s.metrics.ObserveSource("binance", err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Requests++
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	}
}

func (s *Source) Stats() market.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.BreakerState = s.breaker.State().String()
	return out
}

func (s *Source) Close() error {
	s.client.HTTPClient.CloseIdleConnections()
	return nil
}

func parseFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
