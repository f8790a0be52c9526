package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"signalhub/internal/market"
)

// ErrNotFound 表示请求的数据不存在。
var ErrNotFound = errors.New("not found")

var errEmptyKey = errors.New("symbol/interval 不能为空")

// CandleStore 抽象：按 symbol+interval 缓存 K 线序列。
type CandleStore interface {
	Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error
	Get(ctx context.Context, symbol, interval string) ([]market.Candle, error)
}

// WindowExporter 导出最近一段 K 线，供评估引擎使用。
type WindowExporter interface {
	Window(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

// MemoryCandleStore 内存实现，按 OpenTime 升序保存。
type MemoryCandleStore struct {
	mu   sync.RWMutex
	data map[string][]market.Candle
}

func NewMemoryCandleStore() *MemoryCandleStore {
	return &MemoryCandleStore{data: make(map[string][]market.Candle)}
}

// Key 规范化 symbol@interval。
func Key(symbol, interval string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "@" + strings.ToLower(strings.TrimSpace(interval))
}

func validKey(symbol, interval string) bool {
	return strings.TrimSpace(symbol) != "" && strings.TrimSpace(interval) != ""
}

// Put 合并并裁剪：相同 OpenTime 覆盖（未收盘 K 线的增量更新），其余按时间插入。
func (s *MemoryCandleStore) Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error {
	if !validKey(symbol, interval) {
		return errEmptyKey
	}
	if len(candles) == 0 {
		return nil
	}
	if max <= 0 {
		max = 1000
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := Key(symbol, interval)
	cur := s.data[k]
	for _, c := range candles {
		n := len(cur)
		switch {
		case n == 0 || cur[n-1].OpenTime < c.OpenTime:
			cur = append(cur, c)
		case cur[n-1].OpenTime == c.OpenTime:
			cur[n-1] = c
		default:
			idx := sort.Search(n, func(i int) bool { return cur[i].OpenTime >= c.OpenTime })
			if cur[idx].OpenTime == c.OpenTime {
				cur[idx] = c
				continue
			}
			cur = append(cur, market.Candle{})
			copy(cur[idx+1:], cur[idx:])
			cur[idx] = c
		}
	}
	if len(cur) > max {
		cur = append([]market.Candle(nil), cur[len(cur)-max:]...)
	}
	s.data[k] = cur
	return nil
}

// Replace 全量替换指定 symbol+interval 的序列
func (s *MemoryCandleStore) Replace(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if !validKey(symbol, interval) {
		return errEmptyKey
	}
	dst := make([]market.Candle, len(candles))
	copy(dst, candles)
	sort.SliceStable(dst, func(i, j int) bool { return dst[i].OpenTime < dst[j].OpenTime })
	s.mu.Lock()
	s.data[Key(symbol, interval)] = dst
	s.mu.Unlock()
	return nil
}

// Get 返回拷贝；未缓存时返回 ErrNotFound。
func (s *MemoryCandleStore) Get(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.data[Key(symbol, interval)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]market.Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// Window 返回最近 limit 根 K 线（按时间升序）
func (s *MemoryCandleStore) Window(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if !validKey(symbol, interval) {
		return nil, errEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.data[Key(symbol, interval)]
	if !ok {
		return nil, ErrNotFound
	}
	if limit <= 0 || limit > len(cur) {
		limit = len(cur)
	}
	out := make([]market.Candle, limit)
	copy(out, cur[len(cur)-limit:])
	return out, nil
}

// Keys 列出已缓存的 symbol@interval。
func (s *MemoryCandleStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
