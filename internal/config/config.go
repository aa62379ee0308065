package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite". Sqlite is the dev/test default.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type AlertsConfig struct {
	// LargeOverchargeThreshold is the absolute total-overcharge amount above
	// which a large_absolute_overcharge alert fires.
	LargeOverchargeThreshold float64 `mapstructure:"large_overcharge_threshold"`
}

type WatcherConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	InboxDir string `mapstructure:"inbox_dir"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Watcher   WatcherConfig   `mapstructure:"watcher"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

func Load() (Config, error) {
	// .env is optional; env vars win either way.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/freightaudit")

	v.SetEnvPrefix("FREIGHTAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "freightaudit.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("alerts.large_overcharge_threshold", 5000)
	v.SetDefault("watcher.enabled", false)
	v.SetDefault("watcher.inbox_dir", "inbox")
	v.SetDefault("telemetry.service_name", "freightaudit")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
