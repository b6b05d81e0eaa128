package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	GRPC       GRPCConfig       `mapstructure:"grpc"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Events     EventsConfig     `mapstructure:"events"`
	Log        LogConfig        `mapstructure:"log"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Shutdown   ShutdownConfig   `mapstructure:"shutdown"`
}

type HTTPConfig struct {
	Addr           string `mapstructure:"addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

type StorageConfig struct {
	// Driver is one of memory, file, redis, mysql, postgres.
	Driver string      `mapstructure:"driver"`
	Dir    string      `mapstructure:"dir"`
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type AuthConfig struct {
	Required   bool          `mapstructure:"required"`
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Issuer     string        `mapstructure:"issuer"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	UsersDB    string        `mapstructure:"users_db"`
	Google     GoogleConfig  `mapstructure:"google"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	TokenInfoURL string `mapstructure:"tokeninfo_url"`
}

type UploadConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type EventsConfig struct {
	AMQPURL        string        `mapstructure:"amqp_url"`
	Exchange       string        `mapstructure:"exchange"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type PaginationConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type ShutdownConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_upload_bytes", 8<<20)
	v.SetDefault("grpc.addr", ":50051")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "shopadmin:state:")

	v.SetDefault("auth.required", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "shop-admin")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.users_db", "./data/users.db")
	v.SetDefault("auth.google.client_id", "")
	v.SetDefault("auth.google.tokeninfo_url", "https://oauth2.googleapis.com/tokeninfo")

	v.SetDefault("upload.endpoint", "https://api.imgbb.com/1/upload")
	v.SetDefault("upload.api_key", "")
	v.SetDefault("upload.timeout", 30*time.Second)

	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.exchange", "shopadmin.events")
	v.SetDefault("events.workers", 4)
	v.SetDefault("events.queue_size", 1000)
	v.SetDefault("events.publish_timeout", 5*time.Second)

	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")

	v.SetDefault("pagination.page_size", 8)

	v.SetDefault("shutdown.timeout", 10*time.Second)
}

// Load reads config.yaml and SHOPADMIN_* environment overrides. An empty path
// searches ./, ./deploy/ and /etc/shop-admin/; a missing file is not an error
// there, unlike an explicit path.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SHOPADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("/etc/shop-admin/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "redis":
	case "mysql", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required when auth.required is set")
	}
	if c.Events.Workers < 1 {
		return errors.New("events.workers must be at least 1")
	}
	return nil
}

// NewLogger builds the process logger from the log section.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
