package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Token    TokenConfig    `env:",prefix=TOKEN_"`
	Mail     MailConfig     `env:",prefix=MAIL_"`
	Geo      GeoConfig      `env:",prefix=GEO_"`
	Outbox   OutboxConfig   `env:",prefix=OUTBOX_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	App      AppConfig      `env:",prefix=APP_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=account_service"`
	Password string `env:"PASSWORD,default=account_service_password"`
	DBName   string `env:"DB,default=account_service_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret        string   `env:"SECRET,required"`
	SessionExpiry Duration `env:"SESSION_EXPIRY,default=15m"`
}

// TokenConfig holds per-purpose TTLs for single-use account tokens
type TokenConfig struct {
	VerificationTTL   Duration `env:"VERIFICATION_TTL,default=1d"`
	PasswordResetTTL  Duration `env:"PASSWORD_RESET_TTL,default=1d"`
	DeviceApprovalTTL Duration `env:"DEVICE_APPROVAL_TTL,default=1h"`
}

type MailConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=587"`
	Username string `env:"USERNAME,default="`
	Password string `env:"PASSWORD,default="`
	From     string `env:"FROM,default=no-reply@localhost"`
}

type GeoConfig struct {
	Enabled  bool     `env:"ENABLED,default=false"`
	Endpoint string   `env:"ENDPOINT,default=http://ip-api.com/json"`
	Timeout  Duration `env:"TIMEOUT,default=5s"`
}

type OutboxConfig struct {
	PollInterval Duration `env:"POLL_INTERVAL,default=10s"`
	BatchSize    int      `env:"BATCH_SIZE,default=20"`
	MaxAttempts  int      `env:"MAX_ATTEMPTS,default=5"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// AppConfig holds values used when composing links sent in notifications
type AppConfig struct {
	BaseURL string `env:"BASE_URL,default=http://localhost:8080"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Address returns the SMTP server address
func (m MailConfig) Address() string {
	return fmt.Sprintf("%s:%s", m.Host, m.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
