package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. VTSD_CACHE_DRIVER.
const EnvPrefix = "VTSD"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	Source    SourceConfig    `yaml:"source" envconfig:"SOURCE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// RequestTimeout bounds a whole pipeline run triggered over HTTP.
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
	// Zero RateLimitRPS disables the API rate limiter.
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"min=0"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"min=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// CacheConfig selects the cache store and its freshness policy.
// A zero max age means entries of that kind never go stale.
type CacheConfig struct {
	Driver           string        `yaml:"driver" envconfig:"DRIVER" validate:"oneof=fs memory sqlite"`
	Dir              string        `yaml:"dir" envconfig:"DIR"`
	SQLitePath       string        `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	RawMaxAge        time.Duration `yaml:"raw_max_age" envconfig:"RAW_MAX_AGE" validate:"min=0"`
	DirectoryMaxAge  time.Duration `yaml:"directory_max_age" envconfig:"DIRECTORY_MAX_AGE" validate:"min=0"`
	EnrollmentMaxAge time.Duration `yaml:"enrollment_max_age" envconfig:"ENROLLMENT_MAX_AGE" validate:"min=0"`
	PruneSchedule    string        `yaml:"prune_schedule" envconfig:"PRUNE_SCHEDULE"`
}

// SourceConfig locates the published Agency of Education datasets.
type SourceConfig struct {
	EnrollmentPageURL  string        `yaml:"enrollment_page_url" envconfig:"ENROLLMENT_PAGE_URL" validate:"required,url"`
	EnrollmentFileURL  string        `yaml:"enrollment_file_url" envconfig:"ENROLLMENT_FILE_URL" validate:"omitempty,url"`
	OrganizationsURL   string        `yaml:"organizations_url" envconfig:"ORGANIZATIONS_URL" validate:"required,url"`
	PrincipalsURL      string        `yaml:"principals_url" envconfig:"PRINCIPALS_URL" validate:"required,url"`
	SuperintendentsURL string        `yaml:"superintendents_url" envconfig:"SUPERINTENDENTS_URL" validate:"required,url"`
	Timeout            time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	RequestsPerSecond  float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst              int           `yaml:"burst" envconfig:"BURST" validate:"min=1"`
	UserAgent          string        `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`
}

// TelemetryConfig toggles OpenTelemetry tracing and metrics
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, an optional YAML file and
// VTSD_* environment variables, in increasing order of precedence. An empty
// path searches the usual locations for config.yaml.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys missing from the file
// keep their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths fills in cache locations left empty by the user
func (c *Config) resolvePaths() error {
	if c.Cache.Dir != "" && c.Cache.SQLitePath != "" {
		return nil
	}

	paths, err := GetPaths(c.Cache.Dir)
	if err != nil {
		return err
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = paths.CacheDir
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = paths.SQLiteFile
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"vtschooldata.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  DefaultPipelineTimeout,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/vtschooldata.log",
		},
		Cache: CacheConfig{
			Driver:           "fs",
			RawMaxAge:        RawSourceMaxAge,
			DirectoryMaxAge:  DirectoryMaxAge,
			EnrollmentMaxAge: 0,
			PruneSchedule:    DefaultPruneSchedule,
		},
		Source: SourceConfig{
			EnrollmentPageURL:  DefaultEnrollmentPageURL,
			OrganizationsURL:   DefaultOrganizationsURL,
			PrincipalsURL:      DefaultPrincipalsURL,
			SuperintendentsURL: DefaultSuperintendentsURL,
			Timeout:            DefaultHTTPTimeout,
			RequestsPerSecond:  DefaultSourceRPS,
			Burst:              1,
			UserAgent:          AppName + "/" + AppVersion,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			TracingEnabled: false,
			MetricsEnabled: true,
		},
	}
}
