package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "fs", cfg.Cache.Driver)
				assert.Equal(t, 24*time.Hour, cfg.Cache.RawMaxAge)
				assert.Equal(t, 30*24*time.Hour, cfg.Cache.DirectoryMaxAge)
				assert.Equal(t, time.Duration(0), cfg.Cache.EnrollmentMaxAge)
				assert.Equal(t, DefaultEnrollmentPageURL, cfg.Source.EnrollmentPageURL)
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
		{
			name: "env overrides defaults",
			env: map[string]string{
				"VTSD_SERVER_PORT":               "9090",
				"VTSD_CACHE_DRIVER":              "sqlite",
				"VTSD_CACHE_RAW_MAX_AGE":         "2h",
				"VTSD_LOGGING_LEVEL":             "warning",
				"VTSD_SOURCE_USER_AGENT":         "tests/1.0",
				"VTSD_TELEMETRY_TRACING_ENABLED": "true",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "sqlite", cfg.Cache.Driver)
				assert.Equal(t, 2*time.Hour, cfg.Cache.RawMaxAge)
				assert.Equal(t, "warn", cfg.Logging.Level)
				assert.Equal(t, "tests/1.0", cfg.Source.UserAgent)
				assert.True(t, cfg.Telemetry.TracingEnabled)
			},
		},
		{
			name: "file overrides defaults and env overrides file",
			file: `
server:
  port: 7000
cache:
  driver: memory
  directory_max_age: 48h
source:
  requests_per_second: 5
`,
			env: map[string]string{
				"VTSD_SERVER_PORT": "7100",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7100, cfg.Server.Port)
				assert.Equal(t, "memory", cfg.Cache.Driver)
				assert.Equal(t, 48*time.Hour, cfg.Cache.DirectoryMaxAge)
				assert.Equal(t, 5.0, cfg.Source.RequestsPerSecond)
				assert.Equal(t, 24*time.Hour, cfg.Cache.RawMaxAge)
			},
		},
		{
			name:    "invalid driver",
			env:     map[string]string{"VTSD_CACHE_DRIVER": "redis"},
			wantErr: true,
		},
		{
			name:    "invalid port",
			env:     map[string]string{"VTSD_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"VTSD_CACHE_RAW_MAX_AGE": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid source url",
			env:     map[string]string{"VTSD_SOURCE_ORGANIZATIONS_URL": "not a url"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("VTSD_CACHE_DIR", filepath.Join(dir, "cache"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var path string
			if tt.file != "" {
				path = filepath.Join(dir, "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0644))
			}

			cfg, err := Load(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_ResolvesCachePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VTSD_CACHE_DIR", dir)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Cache.Dir)
	assert.True(t, filepath.IsAbs(cfg.Cache.SQLitePath))
	assert.Equal(t, "cache.db", filepath.Base(cfg.Cache.SQLitePath))
}

func TestValidate_FileOutputRequiresPath(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""

	assert.Error(t, cfg.validate())
}

func TestAvailableYears(t *testing.T) {
	years := AvailableYears()

	require.Len(t, years, MaxYear-MinYear+1)
	assert.Equal(t, MinYear, years[0])
	assert.Equal(t, MaxYear, years[len(years)-1])
	for i := 1; i < len(years); i++ {
		assert.Equal(t, years[i-1]+1, years[i])
	}

	assert.False(t, IsAvailableYear(1999))
	assert.True(t, IsAvailableYear(2010))
	assert.False(t, IsAvailableYear(MaxYear+1))
}
