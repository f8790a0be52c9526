package signals

type Config struct {
	HeikinAshi HeikinAshiConfig `json:"heikin_ashi" toml:"heikin_ashi" yaml:"heikin_ashi"`
	Trend      TrendConfig      `json:"trend_adx" toml:"trend_adx" yaml:"trend_adx"`
	Koncorde   KoncordeConfig   `json:"koncorde" toml:"koncorde" yaml:"koncorde"`
	WaveTrend  WaveTrendConfig  `json:"wavetrend" toml:"wavetrend" yaml:"wavetrend"`
	Whale      WhaleConfig      `json:"whale" toml:"whale" yaml:"whale"`
	Divergence DivergenceConfig `json:"divergence" toml:"divergence" yaml:"divergence"`
	OrderBlock OrderBlockConfig `json:"order_block" toml:"order_block" yaml:"order_block"`
}

// DefaultConfig returns the documented defaults of every generator.
func DefaultConfig() Config {
	return Config{
		HeikinAshi: DefaultHeikinAshiConfig(),
		Trend:      DefaultTrendConfig(),
		Koncorde:   DefaultKoncordeConfig(),
		WaveTrend:  DefaultWaveTrendConfig(),
		Whale:      DefaultWhaleConfig(),
		Divergence: DefaultDivergenceConfig(),
		OrderBlock: DefaultOrderBlockConfig(),
	}
}

func (c Config) Normalize() Config {
	c.HeikinAshi = c.HeikinAshi.normalize()
	c.Trend = c.Trend.normalize()
	c.Koncorde = c.Koncorde.normalize()
	c.WaveTrend = c.WaveTrend.normalize()
	c.Whale = c.Whale.normalize()
	c.Divergence = c.Divergence.normalize()
	c.OrderBlock = c.OrderBlock.normalize()
	return c
}

// NewGenerators builds the seven generators in Names order.
func NewGenerators(cfg Config) []Generator {
	cfg = cfg.Normalize()
	return []Generator{
		NewHeikinAshiGenerator(cfg.HeikinAshi),
		NewTrendGenerator(cfg.Trend),
		NewKoncordeGenerator(cfg.Koncorde),
		NewWaveTrendGenerator(cfg.WaveTrend),
		NewWhaleGenerator(cfg.Whale),
		NewDivergenceGenerator(cfg.Divergence),
		NewOrderBlockGenerator(cfg.OrderBlock),
	}
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func floatOr(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func maxInt(vals ...int) int {
	out := 0
	for _, v := range vals {
		if v > out {
			out = v
		}
	}
	return out
}
