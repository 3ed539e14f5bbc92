package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/sqlbench/pkg/adapter"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "SQLBENCH_"

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store config in context.
type configKey struct{}

// flagKeys maps flag names to config keys where kebab-to-snake is not enough.
var flagKeys = map[string]string{
	"database":   "database.url",
	"timeout":    "execution.timeout_ms",
	"workers":    "batch.workers",
	"addr":       "server.addr",
	"history":    "history.path",
}

// envKeys maps flattened environment names to nested config keys.
var envKeys = map[string]string{
	"database_url":         "database.url",
	"database_type":        "database.type",
	"database_path":        "database.path",
	"execution_timeout_ms": "execution.timeout_ms",
	"execution_enabled":    "execution.enabled",
	"batch_workers":        "batch.workers",
	"server_addr":          "server.addr",
	"history_path":         "history.path",
}

// FindConfigFile returns explicit if set, otherwise sqlbench.yaml or
// sqlbench.yml in the working directory, or "".
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"sqlbench.yaml", "sqlbench.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	def := Default()

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"database.url":         "",
		"database.type":        "",
		"execution.timeout_ms": def.Execution.TimeoutMS,
		"execution.enabled":    def.Execution.Enabled,
		"batch.workers":        def.Batch.Workers,
		"server.addr":          def.Server.Addr,
		"history.path":         def.History.Path,
		"log_level":            def.LogLevel,
		"output":               def.Output,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path := FindConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables
	// Transform: SQLBENCH_DATABASE_URL -> database.url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if mapped, ok := envKeys[key]; ok {
			return mapped
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			if f.Name == "no-execute" {
				disabled, _ := flags.GetBool("no-execute")
				return "execution.enabled", !disabled
			}
			if key, ok := flagKeys[f.Name]; ok {
				return key, posflag.FlagVal(flags, f)
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Database.URL = expandEnvVars(cfg.Database.URL)
	cfg.Database.Path = expandEnvVars(cfg.Database.Path)
	cfg.History.Path = expandEnvVars(cfg.History.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and that the database type is registered.
func (c *Config) Validate() error {
	if c.Execution.TimeoutMS <= 0 {
		return fmt.Errorf("execution.timeout_ms must be positive, got %d", c.Execution.TimeoutMS)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	if c.Database.URL == "" && c.Database.Type != "" && !adapter.IsRegistered(c.Database.Type) {
		return &adapter.UnknownAdapterError{Type: c.Database.Type, Available: adapter.ListAdapters()}
	}
	return nil
}

// AdapterConfig converts the database section into an adapter config.
func (c *Config) AdapterConfig() (adapter.Config, error) {
	if c.Database.URL != "" {
		cfg, err := adapter.ParseURL(c.Database.URL)
		if err != nil {
			return adapter.Config{}, err
		}
		cfg.Params = c.Database.Params
		return cfg, nil
	}
	return adapter.Config{
		Type:    c.Database.Type,
		Path:    c.Database.Path,
		Options: c.Database.Options,
		Params:  c.Database.Params,
	}, nil
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() any {
	return loggerKey{}
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}

// WithConfig returns a copy of ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored in ctx, or the defaults.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return Default()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as written.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}
