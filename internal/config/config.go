// Package config loads agent-playbook settings from a yaml file, environment
// variables and command-line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. AGENT_PLAYBOOK_BACKEND.
const EnvPrefix = "AGENT_PLAYBOOK"

// Config holds the resolved settings.
type Config struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Path     string `mapstructure:"path" yaml:"path"`
	Playbook string `mapstructure:"playbook" yaml:"playbook"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// HomeDir is the directory holding the default config, playbooks and database.
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agent-playbook")
}

// DefaultPath returns the storage location used when none is configured.
func DefaultPath(backend string) string {
	if backend == "sqlite" {
		return filepath.Join(HomeDir(), "playbook.db")
	}
	return filepath.Join(HomeDir(), "playbooks")
}

// New returns a viper instance with defaults, search paths and env binding set.
// configFile, when non-empty, replaces the search paths.
func New(configFile string) *viper.Viper {
	v := viper.New()
	v.SetDefault("backend", "file")
	v.SetDefault("path", "")
	v.SetDefault("playbook", "default")
	v.SetDefault("log_level", "warn")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(HomeDir())
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (if any) into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found; use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath(cfg.Backend)
	}
	cfg.Path = expandHome(cfg.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid backend %q (use file or sqlite)", c.Backend)
	}
	if strings.TrimSpace(c.Playbook) == "" {
		return fmt.Errorf("playbook name is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
