// Package config loads pipeline settings from YAML, a .env file and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/isoflow/pkg/errors"
)

// Engine names accepted in Config.Engine.
const (
	EngineAuto    = "auto"
	EngineNative  = "native"
	EngineCmdStan = "cmdstan"
)

// ValidEngines lists the accepted engine names.
var ValidEngines = []string{EngineAuto, EngineNative, EngineCmdStan}

// Environment variables consulted after the YAML file.
const (
	EnvCmdStan = "CMDSTAN"
	EnvEngine  = "ISOFLOW_ENGINE"
)

// Config holds every knob of a pipeline run.
type Config struct {
	DataPath    string `yaml:"data_path"`
	HoldoutPath string `yaml:"holdout_path"`
	ResultsDir  string `yaml:"results_dir"`
	PlotsDir    string `yaml:"plots_dir"`
	WorkDir     string `yaml:"work_dir"`

	Engine      string `yaml:"engine"`
	CmdStanHome string `yaml:"cmdstan_home"`

	// Chains, Draws, Warmup and Seed are shared by both engines.
	// Draws of 0 means the stage default.
	Chains int    `yaml:"chains"`
	Draws  int    `yaml:"draws"`
	Warmup int    `yaml:"warmup"`
	Seed   uint64 `yaml:"seed"`

	// BurnIn and Thin only apply to the native engine.
	BurnIn int `yaml:"burn_in"`
	Thin   int `yaml:"thin"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DataPath:   filepath.Join("data", "merged_data.csv"),
		ResultsDir: "results",
		PlotsDir:   "plots",
		WorkDir:    ".isoflow",
		Engine:     EngineAuto,
		Chains:     4,
		Warmup:     1000,
		Seed:       1,
		BurnIn:     1000,
		Thin:       5,
		LogLevel:   "info",
		LogFormat:  "console",
	}
}

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "config: load %s", f)
		}
	}
	return nil
}

// Load reads .env, then the YAML file at path over the defaults, then the
// environment overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	if err := LoadEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "config: read %s", path)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "config: parse %s", path)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if home := os.Getenv(EnvCmdStan); home != "" && c.CmdStanHome == "" {
		c.CmdStanHome = home
	}
	if engine := os.Getenv(EnvEngine); engine != "" {
		c.Engine = engine
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "config: create directory")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "config: marshal")
	}
	return errors.WithStack(os.WriteFile(path, data, 0o644))
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !slices.Contains(ValidEngines, c.Engine) {
		return errors.NewValidationError("engine", "must be one of auto, native, cmdstan", c.Engine)
	}
	if c.Chains <= 0 {
		return errors.NewValidationError("chains", "must be positive", c.Chains)
	}
	if c.Draws < 0 {
		return errors.NewValidationError("draws", "must not be negative", c.Draws)
	}
	if c.Warmup < 0 {
		return errors.NewValidationError("warmup", "must not be negative", c.Warmup)
	}
	if c.BurnIn < 0 {
		return errors.NewValidationError("burn_in", "must not be negative", c.BurnIn)
	}
	if c.Thin < 1 {
		return errors.NewValidationError("thin", "must be at least 1", c.Thin)
	}
	if c.DataPath == "" {
		return errors.NewValidationError("data_path", "must be set", c.DataPath)
	}
	return nil
}

// DrawsFor returns the configured draw count, or stageDefault when unset.
func (c *Config) DrawsFor(stageDefault int) int {
	if c.Draws > 0 {
		return c.Draws
	}
	return stageDefault
}
