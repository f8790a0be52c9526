// Package config loads the signalhub configuration from TOML or YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"signalhub/internal/convergence"
	"signalhub/internal/gateway/binance"
	"signalhub/internal/signals"
)

type Config struct {
	Server    ServerConfig   `toml:"server" yaml:"server" json:"server"`
	Log       LogConfig      `toml:"log" yaml:"log" json:"log"`
	Binance   BinanceConfig  `toml:"binance" yaml:"binance" json:"binance"`
	Redis     RedisConfig    `toml:"redis" yaml:"redis" json:"redis"`
	Database  DatabaseConfig `toml:"database" yaml:"database" json:"database"`
	Engine    EngineConfig   `toml:"engine" yaml:"engine" json:"engine"`
	Backtest  BacktestConfig `toml:"backtest" yaml:"backtest" json:"backtest"`
	Watchlist []WatchEntry   `toml:"watchlist" yaml:"watchlist" json:"watchlist"`
}

type ServerConfig struct {
	Addr                   string `toml:"addr" yaml:"addr" json:"addr"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" json:"shutdown_timeout_seconds"`
	// WatchEverySeconds 为 watchlist 轮询间隔，0 表示不轮询。
	WatchEverySeconds int `toml:"watch_every_seconds" yaml:"watch_every_seconds" json:"watch_every_seconds"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level" json:"level"`
	Pretty bool   `toml:"pretty" yaml:"pretty" json:"pretty"`
}

type BinanceConfig struct {
	RESTBaseURL            string `toml:"rest_base_url" yaml:"rest_base_url" json:"rest_base_url"`
	APIKey                 string `toml:"api_key" yaml:"api_key" json:"-"`
	SecretKey              string `toml:"secret_key" yaml:"secret_key" json:"-"`
	RateLimitPerMin        int    `toml:"rate_limit_per_min" yaml:"rate_limit_per_min" json:"rate_limit_per_min"`
	TimeoutSeconds         int    `toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	BreakerFailures        int    `toml:"breaker_failures" yaml:"breaker_failures" json:"breaker_failures"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds" yaml:"breaker_cooldown_seconds" json:"breaker_cooldown_seconds"`
	// HistoryLimit is how many candles are fetched per evaluation.
	HistoryLimit int `toml:"history_limit" yaml:"history_limit" json:"history_limit"`
}

// Source converts the file section into the gateway config.
func (c BinanceConfig) Source() binance.Config {
	out := binance.Config{
		RESTBaseURL:     c.RESTBaseURL,
		APIKey:          c.APIKey,
		SecretKey:       c.SecretKey,
		RateLimitPerMin: c.RateLimitPerMin,
		HTTPTimeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		BreakerCooldown: time.Duration(c.BreakerCooldownSeconds) * time.Second,
	}
	if c.BreakerFailures > 0 {
		out.BreakerFailures = uint32(c.BreakerFailures)
	}
	return out
}

// RedisConfig enables the result cache when Addr is set.
type RedisConfig struct {
	Addr       string `toml:"addr" yaml:"addr" json:"addr"`
	Password   string `toml:"password" yaml:"password" json:"-"`
	DB         int    `toml:"db" yaml:"db" json:"db"`
	Prefix     string `toml:"prefix" yaml:"prefix" json:"prefix"`
	TTLSeconds int    `toml:"ttl_seconds" yaml:"ttl_seconds" json:"ttl_seconds"`
}

func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

func (c RedisConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// DatabaseConfig points at the sqlite signal log; empty Path disables it.
type DatabaseConfig struct {
	Path string `toml:"path" yaml:"path" json:"path"`
}

type EngineConfig struct {
	Signals     signals.Config     `toml:"signals" yaml:"signals" json:"signals"`
	Convergence convergence.Config `toml:"convergence" yaml:"convergence" json:"convergence"`
}

type BacktestConfig struct {
	// Horizon is the number of bars used for the forward return of a decision.
	Horizon    int    `toml:"horizon" yaml:"horizon" json:"horizon"`
	MaxCandles int    `toml:"max_candles" yaml:"max_candles" json:"max_candles"`
	ChartDir   string `toml:"chart_dir" yaml:"chart_dir" json:"chart_dir"`
}

type WatchEntry struct {
	Symbol   string `toml:"symbol" yaml:"symbol" json:"symbol"`
	Interval string `toml:"interval" yaml:"interval" json:"interval"`
}

// Default returns a fully populated configuration.
func Default() Config {
	cfg := Config{
		Engine: EngineConfig{
			Signals:     signals.DefaultConfig(),
			Convergence: convergence.DefaultConfig(),
		},
		Watchlist: []WatchEntry{{Symbol: "BTCUSDT", Interval: "1h"}},
	}
	cfg.Server.WatchEverySeconds = 60
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Server.WatchEverySeconds < 0 {
		c.Server.WatchEverySeconds = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Binance.RESTBaseURL == "" {
		c.Binance.RESTBaseURL = "https://fapi.binance.com"
	}
	if c.Binance.RateLimitPerMin <= 0 {
		c.Binance.RateLimitPerMin = 1200
	}
	if c.Binance.TimeoutSeconds <= 0 {
		c.Binance.TimeoutSeconds = 15
	}
	if c.Binance.BreakerFailures <= 0 {
		c.Binance.BreakerFailures = 5
	}
	if c.Binance.BreakerCooldownSeconds <= 0 {
		c.Binance.BreakerCooldownSeconds = 30
	}
	if c.Binance.HistoryLimit <= 0 {
		c.Binance.HistoryLimit = 500
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "signalhub"
	}
	if c.Redis.TTLSeconds <= 0 {
		c.Redis.TTLSeconds = 60
	}
	if c.Backtest.Horizon <= 0 {
		c.Backtest.Horizon = 12
	}
	if c.Backtest.MaxCandles <= 0 {
		c.Backtest.MaxCandles = 1500
	}
	c.Engine.Signals = c.Engine.Signals.Normalize()
	c.Engine.Convergence = c.Engine.Convergence.Normalize()
	return c
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if c.Binance.HistoryLimit > 1500 {
		return fmt.Errorf("binance.history_limit %d exceeds 1500", c.Binance.HistoryLimit)
	}
	_, err := NormalizeWatchlist(c.Watchlist)
	return err
}

// Load reads path, choosing the decoder by extension (.toml, .yaml, .yml).
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("读取配置失败: %w", err)
	}
	var cfg Config
	if err := decode(path, data, &cfg); err != nil {
		return Config{}, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.Watchlist, _ = NormalizeWatchlist(cfg.Watchlist)
	return cfg, nil
}

func decode(path string, data []byte, out *Config) error {
	switch format(path) {
	case "toml":
		return toml.Unmarshal(data, out)
	case "yaml":
		return yaml.Unmarshal(data, out)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func encode(path string, cfg Config) ([]byte, error) {
	switch format(path) {
	case "toml":
		return toml.Marshal(cfg)
	case "yaml":
		return yaml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}
