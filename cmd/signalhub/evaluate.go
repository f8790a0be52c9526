package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"signalhub/internal/convergence"
	"signalhub/internal/market"
	"signalhub/internal/report"
)

func readCandles(path string) ([]market.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return market.ParseCandleCSV(f)
}

func evaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol   string
		interval string
		csvPath  string
		asJSON   bool
		persist  bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the latest candle window (Binance or CSV)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, appOptions{offline: csvPath != "", persist: persist})
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				res   convergence.Result
				title string
			)
			if csvPath != "" {
				candles, err := readCandles(csvPath)
				if err != nil {
					return err
				}
				if len(candles) < a.engine.Warmup() {
					fmt.Fprintf(cmd.ErrOrStderr(), "note: %d candles, generators need up to %d; short ones report NONE\n", len(candles), a.engine.Warmup())
				}
				res, err = a.svc.EvaluateCandles(ctx, candles)
				if err != nil {
					return err
				}
				title = csvPath
			} else {
				res, err = a.svc.Evaluate(ctx, symbol, interval)
				if err != nil {
					return err
				}
				title = symbol + " " + interval
			}
			if asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), report.PrettyJSON(res))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.ResultTable(title, res))
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "BTCUSDT", "symbol")
	cmd.Flags().StringVarP(&interval, "interval", "i", "1h", "candle interval")
	cmd.Flags().StringVar(&csvPath, "csv", "", "read candles from a CSV file instead of Binance")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	cmd.Flags().BoolVar(&persist, "persist", false, "write to the configured signal log and cache")
	return cmd
}
