package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minSecretLen = 32
)

type Config struct {
	Env  string
	Port string

	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int
	JWTSecret       string
	EphemeralSecret bool
	TokenTTL        time.Duration
	TokenLeeway     time.Duration
	GoogleClientID  string

	AIAPIKey string
	GenModel string

	BcryptCost      int
	HashConcurrency int

	HistoryWorkers     int
	HistoryQueueSize   int
	SessionIdleTimeout time.Duration

	RedisURL           string
	AuthRatePerMinute  int
	CORSOrigins        []string
	StaticDir          string
	LandingPage        string
	PaymentAutoConfirm bool
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	env := &envReader{}
	cfg := &Config{
		Env:                getEnv("APP_ENV", EnvDevelopment),
		Port:               getEnv("PORT", "8000"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:     env.Int("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns:     env.Int("DB_MAX_IDLE_CONNS", 10),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		TokenTTL:           env.Duration("TOKEN_TTL", 30*24*time.Hour),
		TokenLeeway:        env.Duration("TOKEN_LEEWAY", 0),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		AIAPIKey:           getEnv("GEMINI_API_KEY", ""),
		GenModel:           getEnv("GEN_MODEL", "gemini-1.5-flash"),
		BcryptCost:         env.Int("BCRYPT_COST", bcrypt.DefaultCost),
		HashConcurrency:    env.Int("HASH_CONCURRENCY", runtime.NumCPU()),
		HistoryWorkers:     env.Int("HISTORY_WORKERS", 4),
		HistoryQueueSize:   env.Int("HISTORY_QUEUE_SIZE", 256),
		SessionIdleTimeout: env.Duration("SESSION_IDLE_TIMEOUT", 0),
		RedisURL:           getEnv("REDIS_URL", ""),
		AuthRatePerMinute:  env.Int("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		StaticDir:          getEnv("STATIC_DIR", "./static"),
		LandingPage:        getEnv("LANDING_PAGE", "./index.html"),
		PaymentAutoConfirm: env.Bool("PAYMENT_AUTO_CONFIRM", false),
	}

	if err := env.Err(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.TokenLeeway < 0 {
		return fmt.Errorf("TOKEN_LEEWAY must not be negative, got %s", c.TokenLeeway)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.HashConcurrency < 1 {
		c.HashConcurrency = 1
	}
	if c.HistoryWorkers < 1 {
		c.HistoryWorkers = 1
	}
	if c.HistoryQueueSize < 1 {
		c.HistoryQueueSize = 1
	}

	switch {
	case c.JWTSecret != "" && len(c.JWTSecret) < minSecretLen && c.IsProduction():
		return fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minSecretLen)
	case c.JWTSecret == "" && c.IsProduction():
		return errors.New("JWT_SECRET not set")
	case c.JWTSecret == "":
		// Outside production a missing secret gets a random per-process value,
		// so tokens die with the process instead of sharing a known key.
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("generate ephemeral JWT secret: %w", err)
		}
		c.JWTSecret = secret
		c.EphemeralSecret = true
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, minSecretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// envReader parses typed values and remembers every malformed one, so a typo
// fails startup instead of silently becoming the default.
type envReader struct {
	errs []error
}

func (e *envReader) Int(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *envReader) Duration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (e *envReader) Bool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e *envReader) Err() error {
	return errors.Join(e.errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
