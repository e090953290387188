package config

import (
	"errors"

	"github.com/spf13/viper"

	"stackguard/internal/env"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":8080")
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path ("console" for stdout)
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Periodic task intervals, in seconds
 * @property {int} check - Supervisor service-check cycle
 * @property {int} validate - Scheduled config validation pass
 * @property {int} backup - Scheduled snapshot cadence
 * @property {int} watcher_poll - ChangeWatcher polling fallback
 */
type IntervalConfig struct {
	Check       int `mapstructure:"check"`
	Validate    int `mapstructure:"validate"`
	Backup      int `mapstructure:"backup"`
	WatcherPoll int `mapstructure:"watcher_poll"`
}

/**
 * Probe and remediation timing
 * @property {int} timeout - Probe timeout in seconds
 * @property {int} grace - Grace period after remediation before re-probe, seconds
 * @property {int} lock_timeout - Per-path lock acquisition bound, seconds
 */
type ProbeConfig struct {
	Timeout     int `mapstructure:"timeout"`
	Grace       int `mapstructure:"grace"`
	LockTimeout int `mapstructure:"lock_timeout"`
}

/**
 * Backup retention policy
 * @property {int} max_count - Maximum retained snapshots, oldest evicted beyond it
 */
type BackupConfig struct {
	MaxCount int `mapstructure:"max_count"`
}

var ErrServiceNotFound = errors.New("service not found")

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Interval IntervalConfig `mapstructure:"interval"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(env.StackguardDir)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:8787"
	}
	if cfg.Interval.Check <= 0 {
		cfg.Interval.Check = 60
	}
	if cfg.Interval.Validate <= 0 {
		cfg.Interval.Validate = 15 * 60
	}
	if cfg.Interval.Backup <= 0 {
		cfg.Interval.Backup = 6 * 60 * 60
	}
	if cfg.Interval.WatcherPoll <= 0 {
		cfg.Interval.WatcherPoll = 5 * 60
	}
	if cfg.Probe.Timeout <= 0 {
		cfg.Probe.Timeout = 8
	}
	if cfg.Probe.Grace <= 0 {
		cfg.Probe.Grace = 10
	}
	if cfg.Probe.LockTimeout <= 0 {
		cfg.Probe.LockTimeout = 5
	}
	if cfg.Backup.MaxCount <= 0 {
		cfg.Backup.MaxCount = 20
	}
	return cfg
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
