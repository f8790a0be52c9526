package main

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"signalhub/internal/config"
	"signalhub/internal/logger"
	"signalhub/internal/service"
	"signalhub/internal/transport/http/api"
)

func serveCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the watchlist poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, err := newApp(ctx, cfg, appOptions{persist: true})
			if err != nil {
				return err
			}
			defer a.Close()

			mgr := a.backtests()
			writer := config.NewWriter(opts.configPath)
			srv, err := api.NewServer(api.ServerParams{
				Addr:            cfg.Server.Addr,
				Service:         a.svc,
				Backtests:       mgr,
				Metrics:         a.metrics,
				Writer:          writer,
				ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
			})
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(gctx) })
			if cfg.Server.WatchEverySeconds > 0 {
				w := service.NewWatcher(service.WatcherParams{
					Service:  a.svc,
					Provider: watchlistProvider(writer, cfg.Watchlist),
					Every:    time.Duration(cfg.Server.WatchEverySeconds) * time.Second,
					Workers:  4,
				})
				g.Go(func() error {
					w.Run(gctx)
					return nil
				})
			}
			err = g.Wait()
			mgr.Wait()
			logger.Infof("signalhub stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override server.addr")
	return cmd
}

// watchlistProvider 每轮重新读取配置文件，读取失败时退回启动时的列表。
func watchlistProvider(w *config.Writer, fallback []config.WatchEntry) service.WatchlistProvider {
	return func() []config.WatchEntry {
		list, err := w.Watchlist()
		if err != nil {
			return fallback
		}
		return list
	}
}
