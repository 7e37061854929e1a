package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/devicemanager/api/internal/core/auth"
	"github.com/devicemanager/api/internal/infrastructure/db/mongo"
	"github.com/devicemanager/api/internal/infrastructure/db/redis"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	JWT   JWTConfig
	Login LoginConfig
	Mongo MongoConfig
	Redis RedisConfig
}

// JWTConfig is validated by auth.NewTokenIssuer, not here, so that a bad key
// is reported as a ConfigurationError naming the setting.
type JWTConfig struct {
	Issuer          string `env:"JWT_ISSUER"`
	Audience        string `env:"JWT_AUDIENCE"`
	Key             string `env:"JWT_KEY"`
	ValidityMinutes int    `env:"JWT_VALIDITY_MINUTES, default=60"`
}

type LoginConfig struct {
	BcryptCost    int           `env:"BCRYPT_COST,          default=12"`
	MaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS,   default=5"`
	LockoutWindow time.Duration `env:"LOGIN_LOCKOUT_WINDOW, default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=device_manager"`
}

type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR,            default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,              default=0"`
	PoolSize       int           `env:"REDIS_POOL_SIZE,       default=10"`
	CommandTimeout time.Duration `env:"REDIS_COMMAND_TIMEOUT, default=500ms"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Issuer:            c.JWT.Issuer,
		Audience:          c.JWT.Audience,
		Key:               c.JWT.Key,
		ValidityInMinutes: c.JWT.ValidityMinutes,
	}
}

func (c *Config) MongoConfig() mongo.Config {
	return mongo.Config{URI: c.Mongo.URI, Database: c.Mongo.Database}
}

func (c *Config) RedisConfig() redis.Config {
	return redis.Config{
		Addr:           c.Redis.Addr,
		Password:       c.Redis.Password,
		DB:             c.Redis.DB,
		PoolSize:       c.Redis.PoolSize,
		CommandTimeout: c.Redis.CommandTimeout,
	}
}
