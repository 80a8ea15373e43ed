package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	BackendHTTP = "http"
	BackendFake = "fake"

	defaultServerAddress = "localhost:8080"
	defaultEnv           = EnvLocal
	defaultDataDir       = ".reportsync"
)

type Config struct {
	Env               string        `mapstructure:"app_env"`
	ServerAddress     string        `mapstructure:"server_address"`
	EnableTLS         bool          `mapstructure:"enable_tls"`
	DataDir           string        `mapstructure:"data_dir"`
	Backend           string        `mapstructure:"backend"`
	ProbeInterval     time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	UploadConcurrency int           `mapstructure:"upload_concurrency"`
	Sync              Sync          `mapstructure:",squash"`
}

type Sync struct {
	MaxAttempts int           `mapstructure:"sync_max_attempts"`
	BackoffBase time.Duration `mapstructure:"sync_backoff_base"`
	BackoffMax  time.Duration `mapstructure:"sync_backoff_max"`
}

// LoadEnv loads .env from the working directory or its parent if present.
func LoadEnv() error {
	for _, p := range []string{".env", "../.env"} {
		if _, err := os.Stat(p); err == nil {
			return godotenv.Load(p)
		}
	}
	return nil
}

// SetDefaults registers defaults and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.AutomaticEnv()

	v.SetDefault("app_env", defaultEnv)
	v.SetDefault("server_address", defaultServerAddress)
	v.SetDefault("enable_tls", false)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("backend", BackendHTTP)
	v.SetDefault("probe_interval", 15*time.Second)
	v.SetDefault("probe_timeout", 3*time.Second)
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("upload_concurrency", 3)
	v.SetDefault("sync_max_attempts", 8)
	v.SetDefault("sync_backoff_base", 30*time.Second)
	v.SetDefault("sync_backoff_max", time.Hour)
}

// Load builds the client config from v, which must already hold defaults,
// environment and any config file.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:               v.GetString("app_env"),
		ServerAddress:     v.GetString("server_address"),
		EnableTLS:         v.GetBool("enable_tls"),
		DataDir:           v.GetString("data_dir"),
		Backend:           v.GetString("backend"),
		ProbeInterval:     v.GetDuration("probe_interval"),
		ProbeTimeout:      v.GetDuration("probe_timeout"),
		RequestTimeout:    v.GetDuration("request_timeout"),
		UploadConcurrency: v.GetInt("upload_concurrency"),
		Sync: Sync{
			MaxAttempts: v.GetInt("sync_max_attempts"),
			BackoffBase: v.GetDuration("sync_backoff_base"),
			BackoffMax:  v.GetDuration("sync_backoff_max"),
		},
	}

	if cfg.DataDir == defaultDataDir {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.DataDir = filepath.Join(home, defaultDataDir)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Backend != BackendHTTP && c.Backend != BackendFake {
		return fmt.Errorf("backend must be %q or %q, got %q", BackendHTTP, BackendFake, c.Backend)
	}
	if c.Backend == BackendHTTP && c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Sync.BackoffBase > c.Sync.BackoffMax {
		return fmt.Errorf("sync_backoff_base must not exceed sync_backoff_max")
	}
	return nil
}

// BaseURL is the scheme-qualified server address.
func (c *Config) BaseURL() string {
	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + c.ServerAddress
}

func (c *Config) QueuePath() string {
	return filepath.Join(c.DataDir, "queue.db")
}

func (c *Config) ReporterIDPath() string {
	return filepath.Join(c.DataDir, "reporter.id")
}

func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}
