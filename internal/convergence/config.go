package convergence

import "signalhub/internal/signals"

// Config controls how generator outputs are combined.
type Config struct {
	// Weights per generator; generators missing here use DefaultWeights.
	Weights map[signals.Name]float64 `json:"weights" toml:"weights" yaml:"weights"`
	// Bonuses are pointers so an explicit 0 turns them off while an omitted
	// key keeps the default.
	DiamondBonus    *float64 `json:"diamond_bonus" toml:"diamond_bonus" yaml:"diamond_bonus"`
	DivergenceBonus *float64 `json:"divergence_bonus" toml:"divergence_bonus" yaml:"divergence_bonus"`
	Threshold       float64  `json:"threshold" toml:"threshold" yaml:"threshold"`
	// ConflictPenalty multiplies confidence once when any conflict is found.
	ConflictPenalty float64 `json:"conflict_penalty" toml:"conflict_penalty" yaml:"conflict_penalty"`
	// Workers caps concurrent generator evaluations; 0 runs all at once.
	Workers int `json:"workers" toml:"workers" yaml:"workers"`
}

// DefaultWeights favours the two confirmation-heavy generators.
func DefaultWeights() map[signals.Name]float64 {
	return map[signals.Name]float64{
		signals.HeikinAshi: 1.0,
		signals.TrendADX:   1.5,
		signals.Koncorde:   1.0,
		signals.WaveTrend:  1.0,
		signals.Whale:      1.0,
		signals.Divergence: 1.5,
		signals.OrderBlock: 1.0,
	}
}

func DefaultConfig() Config {
	return Config{
		Weights:         DefaultWeights(),
		DiamondBonus:    Bonus(0.5),
		DivergenceBonus: Bonus(0.5),
		Threshold:       3.0,
		ConflictPenalty: 0.8,
	}
}

// Bonus is a helper for setting DiamondBonus and DivergenceBonus.
func Bonus(v float64) *float64 { return &v }

// Normalize fills zero values with defaults. Weights are copied so the
// caller's map is never mutated.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	weights := make(map[signals.Name]float64, len(def.Weights))
	for name, w := range def.Weights {
		weights[name] = w
	}
	for name, w := range c.Weights {
		if w >= 0 {
			weights[name] = w
		}
	}
	c.Weights = weights
	if c.DiamondBonus == nil || *c.DiamondBonus < 0 {
		c.DiamondBonus = def.DiamondBonus
	}
	if c.DivergenceBonus == nil || *c.DivergenceBonus < 0 {
		c.DivergenceBonus = def.DivergenceBonus
	}
	if c.Threshold <= 0 {
		c.Threshold = def.Threshold
	}
	if c.ConflictPenalty <= 0 || c.ConflictPenalty > 1 {
		c.ConflictPenalty = def.ConflictPenalty
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	return c
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func (c Config) weight(name signals.Name) float64 {
	if w, ok := c.Weights[name]; ok {
		return w
	}
	return DefaultWeights()[name]
}
