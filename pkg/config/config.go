package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings every command starts from. Flags override
// these per invocation.
type Config struct {
	Format  string `mapstructure:"format"`
	Pretty  bool   `mapstructure:"pretty"`
	Workers int    `mapstructure:"workers"`
	History string `mapstructure:"history"`
	Verbose bool   `mapstructure:"verbose"`
}

// Default returns the built-in settings.
func Default() Config {
	history := ".liveset_history"
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".liveset_history")
	}
	return Config{
		Format:  "json",
		Pretty:  false,
		Workers: 4,
		History: history,
	}
}

// Load reads configuration from ~/.liveset.yaml (if present) and from
// environment variables with the given prefix (e.g. "LIVESET_").
func Load(prefix string) (Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("format", def.Format)
	v.SetDefault("pretty", def.Pretty)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("history", def.History)
	v.SetDefault("verbose", def.Verbose)

	v.SetConfigName(".liveset")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	if err := v.ReadInConfig(); err != nil {
		// The config file is optional; only a malformed one is fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Viper's AutomaticEnv does not feed Unmarshal for keys that never
	// appear in a config file, so populate the matching env vars by hand.
	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]
		if strings.HasPrefix(key, prefixUpper) {
			propKey := strings.ToLower(strings.TrimPrefix(key, prefixUpper))
			v.Set(propKey, value)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
