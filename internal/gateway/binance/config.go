package binance

import "time"

// Config 描述 Binance Source 运行所需的参数。
type Config struct {
	RESTBaseURL     string        `json:"rest_base_url" toml:"rest_base_url" yaml:"rest_base_url"`
	APIKey          string        `json:"api_key" toml:"api_key" yaml:"api_key"`
	SecretKey       string        `json:"secret_key" toml:"secret_key" yaml:"secret_key"`
	RateLimitPerMin int           `json:"rate_limit_per_min" toml:"rate_limit_per_min" yaml:"rate_limit_per_min"`
	HTTPTimeout     time.Duration `json:"http_timeout" toml:"http_timeout" yaml:"http_timeout"`
	// BreakerFailures 连续失败次数达到该值后熔断。
	BreakerFailures uint32        `json:"breaker_failures" toml:"breaker_failures" yaml:"breaker_failures"`
	BreakerCooldown time.Duration `json:"breaker_cooldown" toml:"breaker_cooldown" yaml:"breaker_cooldown"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://fapi.binance.com"
	}
	if out.RateLimitPerMin <= 0 {
		out.RateLimitPerMin = 1200
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.BreakerFailures == 0 {
		out.BreakerFailures = 5
	}
	if out.BreakerCooldown <= 0 {
		out.BreakerCooldown = 30 * time.Second
	}
	return out
}
