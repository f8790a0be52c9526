package main

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"

	"signalhub/internal/backtest"
	"signalhub/internal/config"
	"signalhub/internal/convergence"
	"signalhub/internal/gateway/binance"
	"signalhub/internal/gateway/database"
	"signalhub/internal/logger"
	"signalhub/internal/metrics"
	"signalhub/internal/service"
	"signalhub/internal/store/rediscache"
)

// app 持有一次命令运行所需的全部组件。
type app struct {
	cfg     config.Config
	metrics *metrics.Metrics
	engine  *convergence.Engine
	source  *binance.Source
	log     *database.SignalLogStore
	redis   *redis.Client
	svc     *service.Service
}

type appOptions struct {
	// offline 不创建 Binance 数据源（CSV 输入）。
	offline bool
	// persist 启用 sqlite 日志与 redis 缓存。
	persist bool
}

func newApp(ctx context.Context, cfg config.Config, o appOptions) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New()}
	a.engine = convergence.New(cfg.Engine.Signals, cfg.Engine.Convergence, convergence.WithMetrics(a.metrics))

	params := service.ServiceParams{
		Engine:       a.engine,
		Metrics:      a.metrics,
		HistoryLimit: cfg.Binance.HistoryLimit,
	}
	if !o.offline {
		src, err := binance.New(cfg.Binance.Source(), a.metrics)
		if err != nil {
			return nil, err
		}
		a.source = src
		params.Source = src
	}
	if o.persist {
		if cfg.Database.Path != "" {
			store, err := database.Open(ctx, cfg.Database.Path)
			if err != nil {
				a.Close()
				return nil, err
			}
			a.log = store
			params.Log = store
		}
		if cfg.Redis.Enabled() {
			client, err := rediscache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				logger.Warnf("redis disabled: %v", err)
			} else {
				a.redis = client
				params.Cache = rediscache.New(client, cfg.Redis.Prefix, cfg.Redis.TTL())
			}
		}
	}
	a.svc = service.NewService(params)
	return a, nil
}

func (a *app) backtests() *backtest.Manager {
	return backtest.NewManager(a.engine, a.svc.LoadBacktest, backtest.ManagerConfig{
		Horizon:    a.cfg.Backtest.Horizon,
		MaxCandles: a.cfg.Backtest.MaxCandles,
		Workers:    a.cfg.Engine.Convergence.Workers,
	}, a.metrics)
}

func (a *app) Close() error {
	var errs []error
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.log != nil {
		errs = append(errs, a.log.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
