// Package config provides configuration management for invmon.
// It uses Viper to load settings from files and environment variables; a local
// .env file is read first so its values behave like real environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for invmon.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost     string   `mapstructure:"server_host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// ── Database ─────────────────────────────────────────────────────────────
	DBDriver string `mapstructure:"db_driver"` // "sqlite" or "mysql"
	DBPath   string `mapstructure:"db_path"`   // used when db_driver = sqlite
	DBDSN    string `mapstructure:"db_dsn"`    // used when db_driver = mysql
	// Pool limits. Queries have no per-call timeout, so the pool bounds them instead.
	DBMaxOpenConns       int `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns       int `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetimeMin int `mapstructure:"db_conn_max_lifetime_minutes"`

	// ── Security ─────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for API tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
	AdminUser string `mapstructure:"admin_user"`
	AdminPass string `mapstructure:"admin_pass"`
	// AgentToken guards the report endpoint used by remote agents. Empty disables the check.
	AgentToken string `mapstructure:"agent_token"`

	// ── Telemetry ────────────────────────────────────────────────────────────
	SampleIntervalSeconds int    `mapstructure:"sample_interval_seconds"`
	DeviceID              string `mapstructure:"device_id"` // empty = host id from gopsutil
	DeviceCost            string `mapstructure:"device_cost"`
	DMIPath               string `mapstructure:"dmi_path"`
	Timezone              string `mapstructure:"timezone"` // IANA name or "Local"

	// ── Agent ────────────────────────────────────────────────────────────────
	AgentJoinAddr string `mapstructure:"agent_join_addr"`
}

// Load reads config from file (./config.yaml or ~/.invmon/config.yaml)
// and falls back to defaults. Environment variables with prefix INVMON_
// override file values.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("port", 7050)
	v.SetDefault("allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_path", "invmon.db")
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_max_open_conns", 25)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime_minutes", 60)

	// Security defaults. Override in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "change-me-invmon-secret")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")
	v.SetDefault("agent_token", "")

	v.SetDefault("sample_interval_seconds", 10)
	v.SetDefault("device_id", "")
	v.SetDefault("device_cost", "YOUR_COST")
	v.SetDefault("dmi_path", "/sys/class/dmi/id")
	v.SetDefault("timezone", "Local")

	v.SetDefault("agent_join_addr", "127.0.0.1:7050")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.invmon")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INVMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.SampleIntervalSeconds <= 0 {
		return nil, fmt.Errorf("sample_interval_seconds must be positive, got %d", cfg.SampleIntervalSeconds)
	}
	return &cfg, nil
}

// SampleInterval is the telemetry timer period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

// Location resolves Timezone; day keys are computed in this location.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
