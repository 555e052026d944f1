package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "tmp", cfg.ArtifactDir)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 600*time.Millisecond, cfg.DelayMin)
	assert.Equal(t, 1400*time.Millisecond, cfg.DelayMax)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, time.Hour, cfg.JobTTL)
	assert.Empty(t, cfg.CachePath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: 9090
artifact_dir: /var/artifacts
cache_path: /var/cache/pages.db
delay_min: 100ms
delay_max: 300ms
max_concurrent_jobs: 2
extra_venues:
  - Journal of Made-Up Studies
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/artifacts", cfg.ArtifactDir)
	assert.Equal(t, "/var/cache/pages.db", cfg.CachePath)
	assert.Equal(t, 100*time.Millisecond, cfg.DelayMin)
	assert.Equal(t, 300*time.Millisecond, cfg.DelayMax)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.Equal(t, []string{"Journal of Made-Up Studies"}, cfg.ExtraVenues)

	// Untouched fields keep defaults.
	assert.Equal(t, time.Hour, cfg.JobTTL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a port"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("SCHOLARCSV_ARTIFACT_DIR", "/env/artifacts")
	t.Setenv("SCHOLARCSV_CACHE_PATH", "/env/cache.db")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "/env/artifacts", cfg.ArtifactDir)
	assert.Equal(t, "/env/cache.db", cfg.CachePath)
}

func TestApplyEnv_IgnoresUnparseablePort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, 8080, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "zero port",
			mutate:  func(c *Config) { c.Port = 0 },
			wantErr: "port",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "empty artifact dir",
			mutate:  func(c *Config) { c.ArtifactDir = "" },
			wantErr: "artifact_dir",
		},
		{
			name:    "inverted delay window",
			mutate:  func(c *Config) { c.DelayMin = time.Second; c.DelayMax = time.Millisecond },
			wantErr: "delay",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.MaxConcurrentJobs = 0 },
			wantErr: "max_concurrent_jobs",
		},
		{
			name:    "zero job TTL",
			mutate:  func(c *Config) { c.JobTTL = 0 },
			wantErr: "job_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
