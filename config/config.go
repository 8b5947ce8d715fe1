// Package config loads raylens configuration from defaults, an optional
// YAML file, RAYLENS_-prefixed environment variables, and command-line
// flags, in rising order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Engine kinds accepted by the engine setting.
const (
	EngineNative = "native"
	EngineMemory = "memory"
)

// Defaults.
const (
	DefaultEngine      = EngineNative
	DefaultFetchWindow = 100
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// RAYLENS_LOG_LEVEL=debug.
const EnvPrefix = "RAYLENS_"

// Config is the resolved raylens configuration.
type Config struct {
	// Engine selects the engine implementation: "native" for the embedded
	// runtime, "memory" for the in-memory stand-in.
	Engine string `koanf:"engine"`

	// HistoryPath is the SQLite file recording executed queries. Empty
	// disables history.
	HistoryPath string `koanf:"history_path"`

	// FetchWindow is the number of rows fetched per request when paging
	// through a result.
	FetchWindow uint64 `koanf:"fetch_window"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// findConfigFile picks the config file to use. An explicit path wins;
// otherwise raylens.yaml then raylens.yml in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"raylens.yaml", "raylens.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// defaultHistoryPath places the history database under the user config
// directory, falling back to the working directory when it is unknown.
func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "raylens-history.db"
	}
	return filepath.Join(dir, "raylens", "history.db")
}

// Load resolves the configuration. cfgFile may be empty, in which case the
// default file locations are probed; flags may be nil.
//
// Precedence, highest to lowest: flags, environment, config file, defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"engine":       DefaultEngine,
		"history_path": defaultHistoryPath(),
		"fetch_window": DefaultFetchWindow,
		"log_level":    DefaultLogLevel,
		"log_format":   DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// RAYLENS_FETCH_WINDOW -> fetch_window
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component could act on.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineNative, EngineMemory:
	default:
		return fmt.Errorf("unknown engine %q (want %q or %q)", c.Engine, EngineNative, EngineMemory)
	}
	if c.FetchWindow == 0 {
		return fmt.Errorf("fetch_window must be positive")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want console or json)", c.LogFormat)
	}
	return nil
}
