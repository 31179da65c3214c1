package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	HTTP struct {
		Port               int    `yaml:"port"`
		APIKey             string `yaml:"api_key"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Monitor struct {
		Enabled              bool    `yaml:"enabled"`
		IntervalSeconds      int     `yaml:"interval_seconds"`
		EvaluationsPerSecond float64 `yaml:"evaluations_per_second"`
	} `yaml:"monitor"`

	// Timezone is the stations' local wall clock, e.g. "Europe/Moscow".
	Timezone string `yaml:"timezone"`

	StationsConfigPath string `yaml:"stations_config_path"`
	ReloadSeconds      int    `yaml:"reload_seconds"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if _, err = cfg.Location(); err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/stationhours.db"
	}
	if c.StationsConfigPath == "" {
		c.StationsConfigPath = "configs/stations.yaml"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.RateLimitPerMinute <= 0 {
		c.HTTP.RateLimitPerMinute = 600
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Backup.IntervalHours <= 0 {
		c.Backup.IntervalHours = 24
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = 14
	}
}

// Location returns the stations' wall-clock location. Empty means local time.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) MonitorInterval() time.Duration {
	if c.Monitor.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

func (c *Config) ReloadInterval() time.Duration {
	if c.ReloadSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ReloadSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// LoadStations loads the stations file referenced by the config.
func (c *Config) LoadStations() (*StationsConfig, error) {
	return LoadStationsConfig(c.StationsConfigPath)
}
