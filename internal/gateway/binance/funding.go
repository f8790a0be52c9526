package binance

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2/futures"
)

// GetFundingRate 获取最新资金费率（例如 0.0001 即 0.01%），作为指标快照的附加上下文。
// 与 K 线请求共用限流器和熔断器。
func (s *Source) GetFundingRate(ctx context.Context, symbol string) (float64, error) {
	if s == nil || s.client == nil {
		return 0, fmt.Errorf("binance source not initialized")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	})
	s.record(err)
	if err != nil {
		if breakerRejected(err) {
			return 0, fmt.Errorf("binance unavailable: %w", err)
		}
		return 0, fmt.Errorf("binance premium index %s: %w", symbol, err)
	}
	res, _ := out.([]*futures.PremiumIndex)
	for _, entry := range res {
		if entry == nil {
			continue
		}
		if strings.EqualFold(entry.Symbol, symbol) {
			return parseFloat(entry.LastFundingRate), nil
		}
	}
	if len(res) > 0 && res[0] != nil {
		return parseFloat(res[0].LastFundingRate), nil
	}
	return 0, fmt.Errorf("funding rate not available for %s", symbol)
}
