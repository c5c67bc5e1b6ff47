// Package config loads library defaults from layered YAML files: the
// user-level ~/.mcp2go/config.yaml first, then a project-level
// ./.mcp2go/config.yaml overriding it.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mcp2go/mcp2go/errors"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config carries the recognized library options.
type Config struct {
	LogLevel       string   `yaml:"log_level"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	CallTimeout    Duration `yaml:"call_timeout"`
	AllowTools     []string `yaml:"allow_tools"`
	StubCache      bool     `yaml:"stub_cache"`
	StubCacheDir   string   `yaml:"stub_cache_dir"`
}

// Load reads configuration from the user's home directory and the current
// working directory, with the latter taking precedence. Missing files are
// not an error; the zero Config is a valid default.
func Load() (*Config, error) {
	cfg := &Config{}

	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".mcp2go", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadFromFile(userPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, ".mcp2go", "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadFromFile(projectPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, so the project-level
	// file replaces user-level values field by field.
	return yaml.Unmarshal(data, cfg)
}
