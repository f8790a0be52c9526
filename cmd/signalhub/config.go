package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"signalhub/internal/config"
)

func initConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default config file (refuses to overwrite)",
		Args:  cobra.MaximumNArgs(1),
		// 不需要读取已有配置
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}

func watchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the watchlist in the config file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List watched symbols",
			RunE: func(cmd *cobra.Command, args []string) error {
				list, err := config.NewWriter(opts.configPath).Watchlist()
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"symbol", "interval"})
				for _, e := range list {
					t.AppendRow(table.Row{e.Symbol, e.Interval})
				}
				t.Render()
				return nil
			},
		},
		&cobra.Command{
			Use:   "add SYMBOL INTERVAL",
			Short: "Add a symbol/interval pair",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return config.NewWriter(opts.configPath).UpdateWatch(config.WatchEntry{Symbol: args[0], Interval: args[1]})
			},
		},
		&cobra.Command{
			Use:   "rm SYMBOL INTERVAL",
			Short: "Remove a symbol/interval pair",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return config.NewWriter(opts.configPath).RemoveWatch(args[0], args[1])
			},
		},
	)
	return cmd
}
