package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig captures all tunable parameters for the API process. Values
// come from the environment (optionally via a local .env file) with defaults
// that let the binary run without setup.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisPrefix   string

	KafkaBrokers []string
	AuditTopic   string

	PGDSN string

	// Static asset origin proxied by the offline gateway, its cache version
	// and the precache manifest.
	AssetOrigin   string
	CacheVersion  string
	PrecachePaths []string
	FetchTimeout  time.Duration

	AvatarDir     string
	AvatarBaseURL string

	LogLevel      string
	RunMigrations bool
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RedisPrefix:     "frp:",
		AuditTopic:      "moderation-audit",
		AssetOrigin:     "http://localhost:3000",
		CacheVersion:    "v1",
		PrecachePaths:   []string{"/", "/index.html", "/manifest.json"},
		FetchTimeout:    10 * time.Second,
		AvatarDir:       "avatars",
		AvatarBaseURL:   "/avatars",
		LogLevel:        "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	// .env is a local convenience; absence is not an error
	_ = godotenv.Load()

	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisPrefix, "REDIS_PREFIX")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.AuditTopic, "AUDIT_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	setStringFromEnv(&cfg.AssetOrigin, "ASSET_ORIGIN")
	setStringFromEnv(&cfg.CacheVersion, "CACHE_VERSION")
	if manifest := os.Getenv("PRECACHE_PATHS"); manifest != "" {
		cfg.PrecachePaths = splitAndTrim(manifest)
	}
	setDurationFromEnv(&cfg.FetchTimeout, "FETCH_TIMEOUT", &errs)

	setStringFromEnv(&cfg.AvatarDir, "AVATAR_DIR")
	setStringFromEnv(&cfg.AvatarBaseURL, "AVATAR_BASE_URL")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	if cfg.CacheVersion == "" {
		errs = append(errs, fmt.Errorf("CACHE_VERSION must not be empty"))
	}

	return cfg, errors.Join(errs...)
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
