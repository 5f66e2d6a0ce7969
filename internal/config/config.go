// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Games      GamesConfig      `mapstructure:"games"`
	Roller     RollerConfig     `mapstructure:"roller"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds administrative configuration: the shared token for the
// admin endpoints and the starting commission rate.
type AdminConfig struct {
	Token          string `mapstructure:"token"`
	CommissionRate int    `mapstructure:"commission_rate"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	DiceTable DiceTableConfig `mapstructure:"dicetable"`
	Duel      DuelConfig      `mapstructure:"duel"`
}

// DiceTableConfig holds single-number game configuration.
type DiceTableConfig struct {
	MinStake   int64 `mapstructure:"min_stake"`
	Multiplier int64 `mapstructure:"multiplier"`
}

// DuelConfig holds duel game configuration.
type DuelConfig struct {
	MinBet int64 `mapstructure:"min_bet"`
}

// RollerConfig holds remote dice roller configuration. An empty BaseURL
// disables the remote roller and the local generator is used directly.
type RollerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WithdrawalConfig holds withdrawal limit configuration.
type WithdrawalConfig struct {
	WeeklyLimit int `mapstructure:"weekly_limit"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, SERVER_ADDR, ADMIN_TOKEN.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is OK - env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Admin.CommissionRate < 0 || cfg.Admin.CommissionRate > 20 {
		return nil, fmt.Errorf("admin.commission_rate must be in [0,20], got %d", cfg.Admin.CommissionRate)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Admin defaults
	v.SetDefault("admin.commission_rate", 5)

	// Game defaults
	v.SetDefault("games.dicetable.min_stake", 100)
	v.SetDefault("games.dicetable.multiplier", 5)
	v.SetDefault("games.duel.min_bet", 100)

	// Roller defaults
	v.SetDefault("roller.timeout", "3s")

	// Withdrawal defaults
	v.SetDefault("withdrawal.weekly_limit", 3)
}
