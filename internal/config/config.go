// Package config loads codexbar's daemon and per-provider settings from
// ~/.config/codexbar/config.yaml, with flag-friendly defaults when the file
// is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort         = 8787
	defaultPollInterval = 15 * time.Minute
)

// Duration wraps time.Duration so YAML can carry values like "90s" or
// "15m"; yaml.v3 has no native decoding for durations.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// ProviderConfig tunes one provider's probe. Zero fields fall back to the
// built-in profile for that provider.
type ProviderConfig struct {
	// Binary overrides the program name to resolve.
	Binary string `yaml:"binary"`
	// Script overrides the line typed into the CLI.
	Script string `yaml:"script"`
	// ExtraArgs is a shell-quoted argument string, e.g. `--profile "work acct"`.
	ExtraArgs string `yaml:"extra_args"`

	Timeout      Duration `yaml:"timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
	InitialDelay Duration `yaml:"initial_delay"`

	StopOnSubstrings []string `yaml:"stop_on_substrings"`
	WorkDir          string   `yaml:"work_dir"`
	Disabled         bool     `yaml:"disabled"`
}

// Args splits ExtraArgs with shell quoting rules.
func (p ProviderConfig) Args() ([]string, error) {
	if p.ExtraArgs == "" {
		return nil, nil
	}
	args, err := shellquote.Split(p.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid extra_args %q: %w", p.ExtraArgs, err)
	}
	return args, nil
}

// Config is the full daemon configuration.
type Config struct {
	// Port serves the local HTTP/WebSocket surface in -serve mode.
	Port int `yaml:"port"`
	// DBPath is the probe history database location.
	DBPath string `yaml:"db_path"`
	// PollInterval is how often -serve re-probes each provider.
	PollInterval Duration `yaml:"poll_interval"`
	// Token guards the WebSocket endpoint. Empty disables the check.
	Token string `yaml:"token"`

	Providers map[string]ProviderConfig `yaml:"providers"`
}

// DefaultPath returns the standard config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "codexbar", "config.yaml"), nil
}

// Load reads the YAML file at path. A missing file yields the defaults;
// a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	dbPath := "codexbar.db"
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".local", "share", "codexbar", "history.db")
	}
	return &Config{
		Port:         defaultPort,
		DBPath:       dbPath,
		PollInterval: Duration(defaultPollInterval),
		Providers:    map[string]ProviderConfig{},
	}
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PollInterval.Std() < time.Minute {
		return fmt.Errorf("poll_interval %s too aggressive; minimum is 1m", c.PollInterval.Std())
	}
	for name, p := range c.Providers {
		if _, err := p.Args(); err != nil {
			return fmt.Errorf("provider %q: %w", name, err)
		}
	}
	return nil
}

// Provider returns the per-provider overrides, zero-valued when the file
// has no entry.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}
