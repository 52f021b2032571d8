// Package config loads islproof settings with koanf.
//
// Sources are layered with priority: environment variables (ISLPROOF_
// prefix) > YAML file > defaults. Nested keys use a double underscore in
// the environment, so ISLPROOF_EVAL__MAX_DEPTH sets eval.max_depth.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/roach88/islproof/internal/evalcache"
	"github.com/roach88/islproof/internal/harness"
	"github.com/roach88/islproof/internal/metrics"
	"github.com/roach88/islproof/internal/policy"
	"github.com/roach88/islproof/internal/trust"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = ".islproof.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ISLPROOF_"

// Config is the complete islproof configuration.
type Config struct {
	Eval   EvalConfig   `json:"eval" koanf:"eval"`
	Trust  trust.Policy `json:"trust" koanf:"trust"`
	Policy PolicyConfig `json:"policy" koanf:"policy"`
	Store  StoreConfig  `json:"store" koanf:"store"`
}

// EvalConfig tunes the evaluator and evidence collection.
type EvalConfig struct {
	MaxDepth         int  `json:"max_depth" koanf:"max_depth"`
	AdapterTimeoutMS int  `json:"adapter_timeout_ms" koanf:"adapter_timeout_ms"`
	Cache            bool `json:"cache" koanf:"cache"`
	FoldConstants    bool `json:"fold_constants" koanf:"fold_constants"`
	// Parallelism bounds concurrent clause checks; 1 is sequential.
	Parallelism int `json:"parallelism" koanf:"parallelism"`
}

// PolicyConfig holds the ship policy.
type PolicyConfig struct {
	// Ship is a CEL expression over the report; see package policy.
	Ship string `json:"ship" koanf:"ship"`
}

// StoreConfig selects run persistence.
type StoreConfig struct {
	// Path is the SQLite database; empty disables persistence.
	Path string `json:"path" koanf:"path"`
}

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// Path is the YAML file to read. Empty reads DefaultPath if it exists;
	// a non-empty path must exist.
	Path string
	// Environ overrides os.Environ, for tests.
	Environ []string
}

// Load reads the configuration from path, the environment and defaults.
func Load(path string) (*Config, error) {
	return LoadWithOptions(LoadOptions{Path: path})
}

// LoadWithOptions reads the configuration with custom options.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	path := opts.Path
	if path == "" && fileExists(DefaultPath) {
		path = DefaultPath
	}
	if path != "" {
		if !fileExists(path) {
			return nil, fmt.Errorf("config file %s not found", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	if err := loadEnvironment(k, opts.Environ); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadEnvironment applies ISLPROOF_ overrides. With environ set, only
// those variables are consulted.
func loadEnvironment(k *koanf.Koanf, environ []string) error {
	if environ == nil {
		if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
			return fmt.Errorf("failed to load environment config: %w", err)
		}
		return nil
	}

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if err := k.Set(envTransform(name), value); err != nil {
			return fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	return nil
}

// envTransform converts environment variable names to config keys.
// Example: ISLPROOF_TRUST__THRESHOLDS__PRODUCTION_READY -> trust.thresholds.production_ready
func envTransform(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ValidationError reports one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Eval.MaxDepth < 1 {
		add("eval.max_depth", "must be at least 1, got %d", c.Eval.MaxDepth)
	}
	if c.Eval.AdapterTimeoutMS < 0 {
		add("eval.adapter_timeout_ms", "must not be negative, got %d", c.Eval.AdapterTimeoutMS)
	}
	if c.Eval.Parallelism < 1 {
		add("eval.parallelism", "must be at least 1, got %d", c.Eval.Parallelism)
	}
	if err := c.Trust.Validate(); err != nil {
		add("trust", "%v", err)
	}
	if _, err := policy.Compile(c.Policy.Ship); err != nil {
		add("policy.ship", "%v", err)
	}
	return errors.Join(errs...)
}

// AdapterTimeout returns eval.adapter_timeout_ms as a duration.
func (c *Config) AdapterTimeout() time.Duration {
	return time.Duration(c.Eval.AdapterTimeoutMS) * time.Millisecond
}

// HarnessOptions converts the configuration into scenario run options.
// The cache, when enabled, reports to rec.
func (c *Config) HarnessOptions(logger *slog.Logger, rec *metrics.Recorder) harness.Options {
	tp := c.Trust
	opts := harness.Options{
		Logger:         logger,
		Metrics:        rec,
		FoldConstants:  c.Eval.FoldConstants,
		MaxDepth:       c.Eval.MaxDepth,
		AdapterTimeout: c.AdapterTimeout(),
		Parallelism:    c.Eval.Parallelism,
		Trust:          &tp,
	}
	if c.Eval.Cache {
		var cacheOpts []evalcache.Option
		if rec != nil {
			cacheOpts = append(cacheOpts, evalcache.WithObserver(rec))
		}
		opts.Cache = evalcache.New(cacheOpts...)
	}
	return opts
}

// ShipPolicy compiles policy.ship.
func (c *Config) ShipPolicy() (*policy.Ship, error) {
	return policy.Compile(c.Policy.Ship)
}
