package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/islproof/internal/policy"
	"github.com/roach88/islproof/internal/trust"
)

// Defaults returns the default value of every key.
func Defaults() map[string]any {
	p := trust.DefaultPolicy()
	return map[string]any{
		"eval.max_depth":          100,
		"eval.adapter_timeout_ms": 2000,
		"eval.cache":              true,
		"eval.fold_constants":     true,
		"eval.parallelism":        4,

		"trust.weights.postconditions":      p.Weights.Postconditions,
		"trust.weights.invariants":          p.Weights.Invariants,
		"trust.weights.scenarios":           p.Weights.Scenarios,
		"trust.weights.temporal":            p.Weights.Temporal,
		"trust.partial_credit":              p.PartialCredit,
		"trust.thresholds.production_ready": p.Thresholds.ProductionReady,
		"trust.thresholds.staging":          p.Thresholds.Staging,
		"trust.thresholds.shadow":           p.Thresholds.Shadow,
		"trust.min_confidence":              p.MinConfidence,

		"policy.ship": policy.DefaultExpr,

		"store.path": "",
	}
}

// Template returns a commented config file with the default values.
func Template() string {
	return `# islproof configuration
# Environment overrides use the ISLPROOF_ prefix and __ between levels,
# e.g. ISLPROOF_EVAL__PARALLELISM=8

eval:
  max_depth: 100              # Deepest expression nesting evaluated
  adapter_timeout_ms: 2000    # Per-call entity adapter timeout (0 = none)
  cache: true                 # Memoize clause results within a run
  fold_constants: true        # Pre-evaluate literal-only subexpressions
  parallelism: 4              # Concurrent clause checks per execution

trust:
  weights:                    # Must sum to 100
    postconditions: 40
    invariants: 30
    scenarios: 20
    temporal: 10
  partial_credit: 0.4         # Weight of a not-proven clause, 0-1
  thresholds:
    production_ready: 95
    staging: 85
    shadow: 70
  min_confidence: 50          # Below this, advice is capped at shadow_mode

policy:
  ship: 'verdict == "PROVEN"' # CEL over verdict, trust, confidence, ...

store:
  path: ""                    # SQLite file for run history (empty = off)
`
}

// flatten returns every key of c in the shape of Defaults.
func (c *Config) flatten() map[string]any {
	p := c.Trust
	return map[string]any{
		"eval.max_depth":          c.Eval.MaxDepth,
		"eval.adapter_timeout_ms": c.Eval.AdapterTimeoutMS,
		"eval.cache":              c.Eval.Cache,
		"eval.fold_constants":     c.Eval.FoldConstants,
		"eval.parallelism":        c.Eval.Parallelism,

		"trust.weights.postconditions":      p.Weights.Postconditions,
		"trust.weights.invariants":          p.Weights.Invariants,
		"trust.weights.scenarios":           p.Weights.Scenarios,
		"trust.weights.temporal":            p.Weights.Temporal,
		"trust.partial_credit":              p.PartialCredit,
		"trust.thresholds.production_ready": p.Thresholds.ProductionReady,
		"trust.thresholds.staging":          p.Thresholds.Staging,
		"trust.thresholds.shadow":           p.Thresholds.Shadow,
		"trust.min_confidence":              p.MinConfidence,

		"policy.ship": c.Policy.Ship,

		"store.path": c.Store.Path,
	}
}

// YAML renders the effective configuration as a config file.
func (c *Config) YAML() ([]byte, error) {
	k := koanf.New(".")
	for key, value := range c.flatten() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
	}
	out, err := k.Marshal(yaml.Parser())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}
