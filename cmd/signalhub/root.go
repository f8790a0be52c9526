package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"signalhub/internal/config"
	"signalhub/internal/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	pretty     bool
	cfg        config.Config
}

func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "signalhub",
		Short:         "Technical-analysis signal engine with multi-indicator convergence",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "signalhub.toml", "config file (.toml, .yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")
	root.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "human-readable console logs")

	root.AddCommand(
		serveCmd(opts),
		evaluateCmd(opts),
		backtestCmd(opts),
		reportCmd(opts),
		initConfigCmd(opts),
		watchCmd(opts),
	)
	return root
}

// load 读取配置并初始化日志；配置文件不存在时使用默认值。
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	missing := errors.Is(err, fs.ErrNotExist)
	switch {
	case err == nil:
	case missing:
		cfg = config.Default()
	default:
		return err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty = o.pretty
	}
	if err := logger.InitWriter(os.Stderr, cfg.Log.Level, cfg.Log.Pretty); err != nil {
		return err
	}
	if missing {
		logger.Debugf("config %s not found, using defaults", o.configPath)
	}
	o.cfg = cfg
	return nil
}
