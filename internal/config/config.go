package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Etcd      EtcdConfig      `mapstructure:"etcd"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Audit     AuditConfig     `mapstructure:"audit"`
}

type ServerConfig struct {
	Environment     string        `mapstructure:"environment"`
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is "mysql" or "postgres".
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EtcdConfig enables cross-instance cache invalidation when Endpoints is set.
type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type CacheConfig struct {
	// Type is "memory" or "redis".
	Type     string        `mapstructure:"type"`
	Capacity uint64        `mapstructure:"capacity"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	Secret          string             `mapstructure:"secret"`
	AccessTokenTTL  time.Duration      `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration      `mapstructure:"refresh_token_ttl"`
	DevMode         bool               `mapstructure:"dev_mode"`
	Users           []UserCredential   `mapstructure:"users"`
	Clients         []ClientCredential `mapstructure:"clients"`
}

// UserCredential is a console user. PasswordHash is a bcrypt hash.
type UserCredential struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Roles        string `mapstructure:"roles"`
}

// ClientCredential is a machine client. SecretHash is a bcrypt hash.
type ClientCredential struct {
	ClientID   string `mapstructure:"client_id"`
	SecretHash string `mapstructure:"secret_hash"`
	Scopes     string `mapstructure:"scopes"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/togglr/cache/invalidate/")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.capacity", 1000)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)

	v.SetDefault("ratelimit.requests_per_second", 5)

	v.SetDefault("audit.enabled", true)
}

// Load reads config.yaml (from path if given, else . and ./config) and
// overlays TOGGLR_* environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("TOGGLR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
