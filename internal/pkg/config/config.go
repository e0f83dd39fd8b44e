package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	UserStore string `env:"USER_STORE, default=mongo"`

	Auth   AuthConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Notify NotifyConfig
}

// AuthConfig controls token signing. TTLs are Go durations ("15m", "720h").
type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTPrivateKeyFile string        `env:"JWT_PRIVATE_KEY_FILE"`
	JWTIssuer         string        `env:"JWT_ISSUER,        default=musichub"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	BcryptCost        int           `env:"BCRYPT_COST,       default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=musichub"`
}

type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB,       default=0"`
	UserCacheTTL time.Duration `env:"USER_CACHE_TTL, default=15s"`
}

type NotifyConfig struct {
	Workers      int    `env:"NOTIFY_WORKERS, default=4"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,      default=465"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes and validates configuration from an arbitrary lookuper.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" && c.Auth.JWTPrivateKeyFile == "" {
		return errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY_FILE is required")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return errors.New("config: ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	switch c.UserStore {
	case "mongo", "memory":
	default:
		return fmt.Errorf("config: unknown USER_STORE %q", c.UserStore)
	}
	return nil
}

// SigningKeyPEM reads the RSA private key when one is configured.
func (c *Config) SigningKeyPEM() ([]byte, error) {
	if c.Auth.JWTPrivateKeyFile == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(c.Auth.JWTPrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("config: read private key: %w", err)
	}
	return pem, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
