// Package config loads the accountd process configuration from YAML and
// GOACCOUNT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/tracing"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: engine.csrf.secret is read from
// GOACCOUNT_ENGINE_CSRF_SECRET.
const EnvPrefix = "GOACCOUNT"

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	GinMode         string        `mapstructure:"gin_mode"`
}

type DatabaseConfig struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// RedisConfig accepts one address for a single node or several for a cluster.
type RedisConfig struct {
	Addrs    []string `mapstructure:"addrs"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db"`
	PoolSize int      `mapstructure:"pool_size"`
}

// Client opens a universal client for the configured topology.
func (c RedisConfig) Client() redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    c.Addrs,
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})
}

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Database DatabaseConfig   `mapstructure:"database"`
	Redis    RedisConfig      `mapstructure:"redis"`
	Log      logging.Config   `mapstructure:"log"`
	AuditLog audit.FileConfig `mapstructure:"audit_log"`
	Tracing  tracing.Config   `mapstructure:"tracing"`
	HTTP     httpapi.Config   `mapstructure:"http"`
	Engine   goAccount.Config `mapstructure:"engine"`
}

// Default returns the configuration used when no file or env var overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			GinMode:         "release",
		},
		Database: DatabaseConfig{
			DSN:         "file:data/goaccount.db",
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			Addrs:    []string{"localhost:6379"},
			PoolSize: 20,
		},
		Log: logging.DefaultConfig(),
		AuditLog: audit.FileConfig{
			MaxSizeMB:  100,
			MaxBackups: 10,
			MaxAgeDays: 90,
			Compress:   true,
		},
		Tracing: tracing.DefaultConfig(),
		HTTP:    httpapi.DefaultConfig(),
		Engine:  goAccount.DefaultConfig(),
	}
}

// Load reads path (or goaccount.yaml from the working directory or
// /etc/goaccount when path is empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("goaccount")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/goaccount")
	}

	cfg := Default()
	setDefaults(v, "", reflect.ValueOf(cfg))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting of any section.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("config: server addr must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("config: server shutdown timeout must be > 0")
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn must not be empty")
	}
	if len(c.Redis.Addrs) == 0 {
		return errors.New("config: redis addrs must not be empty")
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("config: engine: %w", err)
	}
	return nil
}

// setDefaults registers every leaf of value under its mapstructure path so
// AutomaticEnv can override keys absent from the file. Maps keep the
// defaults already present in the decode target.
func setDefaults(v *viper.Viper, prefix string, value reflect.Value) {
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}

		fv := value.Field(i)
		switch fv.Kind() {
		case reflect.Struct:
			setDefaults(v, key, fv)
		case reflect.Map:
		default:
			v.SetDefault(key, fv.Interface())
		}
	}
}
