// Package config loads runner settings from an optional .coderunner.yaml
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the workspace root.
const FileName = ".coderunner.yaml"

// DefaultTimeout bounds a single run.
const DefaultTimeout = 30 * time.Second

// Config holds runner settings.
type Config struct {
	Timeout time.Duration `yaml:"timeout"`
	Shell   string        `yaml:"shell"`
	Debug   bool          `yaml:"debug"`

	// Commands overrides the built-in run command per language ID.
	// Templates may use {file} and {name}.
	Commands map[string]string `yaml:"commands"`
}

type fileConfig struct {
	Timeout  string            `yaml:"timeout"`
	Shell    string            `yaml:"shell"`
	Debug    bool              `yaml:"debug"`
	Commands map[string]string `yaml:"commands"`
}

// Default returns the settings used when no file or environment is present.
func Default() *Config {
	return &Config{
		Timeout:  DefaultTimeout,
		Shell:    defaultShell(),
		Commands: map[string]string{},
	}
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd"
	}
	return "sh"
}

// Load reads path (if it exists) and applies environment overrides.
// An empty path means FileName in the current directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := cfg.parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorkspace loads FileName from dir.
func LoadWorkspace(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

func (c *Config) parse(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", fc.Timeout, err)
		}
		c.Timeout = d
	}
	if fc.Shell != "" {
		c.Shell = fc.Shell
	}
	c.Debug = fc.Debug
	for id, cmd := range fc.Commands {
		c.Commands[id] = cmd
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("CODERUNNER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CODERUNNER_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("CODERUNNER_SHELL"); v != "" {
		c.Shell = v
	}
	return nil
}

// ShellArgs returns the argv prefix that makes the shell run one command string.
func (c *Config) ShellArgs() []string {
	if c.Shell == "cmd" {
		return []string{"cmd", "/C"}
	}
	return []string{c.Shell, "-c"}
}
