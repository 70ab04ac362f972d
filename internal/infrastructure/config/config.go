package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// JWTSecret signs both halves of the token pair. Injected here and passed
	// to the token service at startup; never read from ambient globals.
	JWTSecret       string        `env:"JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`

	RateLimit RateLimitConfig
	Mongo     MongoConfig
	Redis     RedisConfig
}

type RateLimitConfig struct {
	// Profile selects the quota set: strict (production) or relaxed.
	Profile string `env:"RATE_LIMIT_PROFILE, default=strict"`
	// Backend selects counter storage: memory (single instance) or redis
	// (shared across instances).
	Backend string `env:"RATE_LIMIT_BACKEND, default=memory"`
	// FailMode decides what happens when the backend errors: open admits the
	// request, closed rejects it.
	FailMode string `env:"RATE_LIMIT_FAIL_MODE, default=closed"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=snapmeal_auth"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}

// FailOpen reports whether limiter backend failures admit requests.
func (c RateLimitConfig) FailOpen() bool {
	return c.FailMode == "open"
}
