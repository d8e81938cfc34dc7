package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VIGIL_CONFIG is set
//  3. env (prefix VIGIL_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VIGIL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Map env keys like VIGIL_WORKER_COUNT -> worker_count (flat keys).
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("VIGIL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vigil_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case len(c.NumericFeatures) == 0:
		return fmt.Errorf("%w: numeric_features must not be empty", ErrInvalidConfig)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch_size must be positive", ErrInvalidConfig)
	case c.WriteAttempts < 1:
		return fmt.Errorf("%w: write_attempts must be positive", ErrInvalidConfig)
	case c.MaxInflight < 0:
		return fmt.Errorf("%w: max_inflight must not be negative", ErrInvalidConfig)
	}

	switch c.ModelBackend {
	case ModelTree, ModelONNX:
	default:
		return fmt.Errorf("%w: unknown model_backend %q", ErrInvalidConfig, c.ModelBackend)
	}
	switch c.StoreBackend {
	case StoreMem, StoreDyn:
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.StoreBackend == StoreDyn && c.DynamoTable == "" {
		return fmt.Errorf("%w: dynamo_table is required for the dynamodb store", ErrInvalidConfig)
	}
	switch c.SourceBackend {
	case SourceFS, SourceS3:
	default:
		return fmt.Errorf("%w: unknown source_backend %q", ErrInvalidConfig, c.SourceBackend)
	}
	return nil
}
