// Package config provides configuration loading and validation for the
// server and CLI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration. All fields are optional in
// the YAML file; missing values use defaults, and a handful can be
// overridden from the environment.
type Config struct {
	// Server
	Port        int    `yaml:"port"`
	ArtifactDir string `yaml:"artifact_dir"`

	// Data source
	CachePath  string        `yaml:"cache_path"` // empty disables the page cache
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	DelayMin   time.Duration `yaml:"delay_min"`
	DelayMax   time.Duration `yaml:"delay_max"`
	UseBrowser bool          `yaml:"use_browser"`

	// Jobs
	MaxConcurrentJobs int           `yaml:"max_concurrent_jobs"`
	JobTTL            time.Duration `yaml:"job_ttl"`

	// ExtraVenues extends the built-in qualifying-venue allow-list.
	ExtraVenues []string `yaml:"extra_venues"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:              8080,
		ArtifactDir:       "tmp",
		CacheTTL:          24 * time.Hour,
		DelayMin:          600 * time.Millisecond,
		DelayMax:          1400 * time.Millisecond,
		MaxConcurrentJobs: 4,
		JobTTL:            time.Hour,
	}
}

// Load reads a YAML config file over the defaults. An empty path
// returns the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides selected fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("SCHOLARCSV_ARTIFACT_DIR"); v != "" {
		c.ArtifactDir = v
	}
	if v := os.Getenv("SCHOLARCSV_CACHE_PATH"); v != "" {
		c.CachePath = v
	}
}

// Validate checks that the configuration has usable values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be in 1..65535")
	}
	if c.ArtifactDir == "" {
		return fmt.Errorf("config error: 'artifact_dir' must not be empty")
	}
	if c.DelayMin <= 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("config error: delay window must satisfy 0 < delay_min <= delay_max")
	}
	if c.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("config error: 'max_concurrent_jobs' must be positive")
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("config error: 'job_ttl' must be positive")
	}
	return nil
}
