package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

type Config struct {
	Port string
	Env  string

	APIBaseURL     string
	RequestTimeout time.Duration

	SessionSecret string
	SessionTTL    time.Duration

	Identity IdentityConfig
	Google   OAuthConfig

	StorageDriver string
	DatabaseURL   string
	RedisURL      string

	RoleTimeout   time.Duration
	RoleCacheSize int
	GuardWait     time.Duration
	LoginPath     string
}

type IdentityConfig struct {
	BaseURL string
	APIKey  string
}

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func Load() (*Config, error) {
	cfg, err := LoadClient()
	if err != nil {
		return nil, err
	}
	cfg.SessionSecret = getEnvOrPanic("SESSION_SECRET")
	return cfg, nil
}

// LoadClient reads everything except the session secret, for tools that
// talk to the identity service and backend but never issue cookies.
func LoadClient() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:3000"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 15*time.Second),

		SessionTTL: getDuration("SESSION_TTL", 24*time.Hour),

		Identity: IdentityConfig{
			BaseURL: getEnv("IDENTITY_BASE_URL", "https://identitytoolkit.googleapis.com/v1"),
			APIKey:  getEnv("IDENTITY_API_KEY", ""),
		},
		Google: OAuthConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},

		StorageDriver: getEnv("STORAGE_DRIVER", StorageMemory),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),

		RoleTimeout:   getDuration("ROLE_TIMEOUT", 10*time.Second),
		RoleCacheSize: getInt("ROLE_CACHE_SIZE", 16),
		GuardWait:     getDuration("GUARD_WAIT", 2*time.Second),
		LoginPath:     getEnv("LOGIN_PATH", "/auth/login"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}
