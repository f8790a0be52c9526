package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"signalhub/internal/report"
)

func reportCmd(opts *rootOptions) *cobra.Command {
	var (
		symbol   string
		interval string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show an indicator snapshot next to the convergence decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.svc.Snapshot(ctx, symbol, interval)
			if err != nil {
				return err
			}
			res, err := a.svc.Evaluate(ctx, symbol, interval)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				fmt.Fprintln(out, report.PrettyJSON(map[string]any{"snapshot": snap, "result": res}))
				return nil
			}
			fmt.Fprintln(out, report.IndicatorTable(snap.Report))
			if snap.FundingRate != nil {
				fmt.Fprintf(out, "funding rate: %.4f%%\n", *snap.FundingRate*100)
			}
			fmt.Fprintln(out, report.ResultTable(symbol+" "+interval, res))
			return nil
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "BTCUSDT", "symbol")
	cmd.Flags().StringVarP(&interval, "interval", "i", "1h", "candle interval")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
