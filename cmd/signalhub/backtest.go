package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"signalhub/internal/backtest"
	"signalhub/internal/chart"
	"signalhub/internal/market"
	"signalhub/internal/report"
)

func backtestCmd(opts *rootOptions) *cobra.Command {
	var (
		p        backtest.Params
		csvPath  string
		htmlPath string
		pngPath  string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay the engine over history and score forward returns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, appOptions{offline: csvPath != ""})
			if err != nil {
				return err
			}
			defer a.Close()

			var candles []market.Candle
			if csvPath != "" {
				candles, err = readCandles(csvPath)
			} else {
				candles, err = a.svc.LoadBacktest(ctx, normalizedParams(p, opts))
			}
			if err != nil {
				return err
			}
			start := time.Now()
			rep, err := a.backtests().RunNow(ctx, p, candles)
			if err != nil {
				return err
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), report.PrettyJSON(rep))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), report.BacktestTable(rep))
				fmt.Fprintf(cmd.OutOrStdout(), "done in %s\n", time.Since(start).Round(time.Millisecond))
			}
			if htmlPath == "" && pngPath == "" {
				return nil
			}
			return writeCharts(ctx, candles, &rep, htmlPath, pngPath)
		},
	}
	cmd.Flags().StringVarP(&p.Symbol, "symbol", "s", "BTCUSDT", "symbol")
	cmd.Flags().StringVarP(&p.Interval, "interval", "i", "1h", "candle interval")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "number of recent candles (default backtest.max_candles)")
	cmd.Flags().IntVar(&p.Horizon, "horizon", 0, "bars after a decision at which the return is read")
	cmd.Flags().StringVar(&csvPath, "csv", "", "read candles from a CSV file instead of Binance")
	cmd.Flags().StringVar(&htmlPath, "chart", "", "write an HTML chart with the decisions")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG screenshot of the chart (needs Chrome)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func normalizedParams(p backtest.Params, opts *rootOptions) backtest.Params {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Limit <= 0 || p.Limit > opts.cfg.Backtest.MaxCandles {
		p.Limit = opts.cfg.Backtest.MaxCandles
	}
	return p
}

func writeCharts(ctx context.Context, candles []market.Candle, rep *backtest.Report, htmlPath, pngPath string) error {
	var buf bytes.Buffer
	title := fmt.Sprintf("%s %s backtest", rep.Symbol, rep.Interval)
	if err := chart.RenderHTML(&buf, candles, backtest.Markers(rep), chart.Options{Title: title}); err != nil {
		return err
	}
	if htmlPath != "" {
		if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	if pngPath != "" {
		png, err := chart.Screenshot(ctx, buf.Bytes(), chart.Options{})
		if err != nil {
			return err
		}
		if err := os.WriteFile(pngPath, png, 0o644); err != nil {
			return err
		}
	}
	return nil
}
