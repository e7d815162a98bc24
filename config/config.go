// Package config loads langsync run configuration.
//
// Settings come from, in increasing precedence: built-in defaults, a
// YAML config file (.langsync.yaml by default), LANGSYNC_* environment
// variables, and command-line flags bound by the CLI layer.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved run configuration.
type Config struct {
	// SourceLang is the source language code (e.g. "en").
	SourceLang string `mapstructure:"source_lang"`
	// TargetLangs are the target language codes.
	TargetLangs []string `mapstructure:"target_langs"`
	// Files are the source documents to translate.
	Files []string `mapstructure:"files"`
	// OutputPattern is the target path template; must contain "{lang}".
	OutputPattern string `mapstructure:"output_pattern"`
	// Format selects the codec: json, yaml, markdown, or auto.
	Format string `mapstructure:"format"`

	// Service selects the translation backend: "http" or "openai".
	Service string `mapstructure:"service"`
	// Endpoint is the HTTP translation service URL (http service).
	Endpoint string `mapstructure:"endpoint"`
	// APIKey authenticates against the service.
	APIKey string `mapstructure:"api_key"`
	// Model is the model name for the openai service.
	Model string `mapstructure:"model"`

	// DryRun computes diff and size without network calls or writes.
	DryRun bool `mapstructure:"dry_run"`
	// CreatePullRequest is recognized for CI wrappers; langsync itself
	// performs no VCS operations.
	CreatePullRequest bool `mapstructure:"create_pull_request"`

	// ContinueOnError finishes the remaining pairs when one fails.
	ContinueOnError bool `mapstructure:"continue_on_error"`

	// Concurrency bounds the worker pool over file/language pairs.
	Concurrency int `mapstructure:"concurrency"`
	// MaxBatchItems and MaxBatchChars bound one translation request.
	MaxBatchItems int `mapstructure:"max_batch_items"`
	MaxBatchChars int `mapstructure:"max_batch_chars"`
	// MaxRetries is the retry budget per network call.
	MaxRetries int `mapstructure:"max_retries"`
	// Timeout bounds every network call.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfigName is the config file searched in the working directory.
const DefaultConfigName = ".langsync"

// New returns a viper instance with langsync defaults and environment
// binding applied. The CLI binds its flags onto the same instance.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("source_lang", "en")
	v.SetDefault("format", "auto")
	v.SetDefault("service", "http")
	v.SetDefault("concurrency", 4)
	v.SetDefault("max_batch_items", 50)
	v.SetDefault("max_batch_chars", 5000)
	v.SetDefault("max_retries", 3)
	v.SetDefault("timeout", 30*time.Second)

	v.SetEnvPrefix("LANGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file (explicit path, or DefaultConfigName.yaml
// in the working directory) into v and resolves the final Config. A
// missing default config file is fine; a missing explicit one is not.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields every run needs.
func (c *Config) Validate() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("no input files configured")
	}
	if len(c.TargetLangs) == 0 {
		return fmt.Errorf("no target languages configured")
	}
	if !strings.Contains(c.OutputPattern, "{lang}") {
		return fmt.Errorf("output_pattern %q must contain {lang}", c.OutputPattern)
	}
	switch c.Format {
	case "auto", "json", "yaml", "markdown":
	default:
		return fmt.Errorf("format must be json, yaml, markdown, or auto (got %q)", c.Format)
	}
	switch c.Service {
	case "http":
		if c.Endpoint == "" && !c.DryRun {
			return fmt.Errorf("http service requires an endpoint")
		}
	case "openai":
	default:
		return fmt.Errorf("service must be http or openai (got %q)", c.Service)
	}
	return nil
}
