// Package rediscache 缓存最近一次汇总评估结果，键包含最后一根 K 线时间，
// 新 K 线到来后旧键自然失效。
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"signalhub/internal/convergence"
)

type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func New(client redis.Cmdable, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = "signalhub"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Dial 建立连接并 PING 一次。
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Key 形如 signalhub:result:BTCUSDT:1h:1700000000000。
func (c *Cache) Key(symbol, interval string, candleTime int64) string {
	return fmt.Sprintf("%s:result:%s:%s:%d", c.prefix,
		strings.ToUpper(strings.TrimSpace(symbol)), strings.ToLower(strings.TrimSpace(interval)), candleTime)
}

// Get 命中返回 true；未命中不是错误。
func (c *Cache) Get(ctx context.Context, symbol, interval string, candleTime int64) (convergence.Result, bool, error) {
	raw, err := c.client.Get(ctx, c.Key(symbol, interval, candleTime)).Result()
	if errors.Is(err, redis.Nil) {
		return convergence.Result{}, false, nil
	}
	if err != nil {
		return convergence.Result{}, false, err
	}
	var res convergence.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return convergence.Result{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return res, true, nil
}

func (c *Cache) Set(ctx context.Context, symbol, interval string, candleTime int64, res convergence.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.Key(symbol, interval, candleTime), string(payload), c.ttl).Err()
}
