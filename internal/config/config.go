package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the full gateway configuration, loaded from environment
// variables with defaults matching the deployed service.
type Config struct {
	Env     string
	Port    string
	Version string

	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Scorer    ScorerConfig
	Image     ImageConfig

	// Thresholds holds the default per-category cutoffs. Requests may
	// override individual categories.
	Thresholds map[string]float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	Enabled bool
	Backend string // "memory" or "redis"
	TTL     time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	// Grace extends the zset key expiry past the window so slow prunes
	// never drop live members.
	Grace time.Duration
}

type ScorerConfig struct {
	TextBaseURL  string
	ImageBaseURL string
	APIKey       string
	TextModel    string
	ImageModel   string
}

type ImageConfig struct {
	MaxSizeMB    int
	MaxDimension int
	FetchTimeout time.Duration
}

// Load reads configuration from the environment.
func Load() Config {
	return Config{
		Env:     getenv("ENV", "development"),
		Port:    getenv("PORT", "8080"),
		Version: getenv("API_VERSION", "1.0.0"),
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getenvBool("CACHE_ENABLED", true),
			Backend: getenv("CACHE_BACKEND", "redis"),
			TTL:     getenvSeconds("CACHE_TTL_SECONDS", 3600),
		},
		RateLimit: RateLimitConfig{
			Enabled: getenvBool("RATE_LIMIT_ENABLED", true),
			Limit:   getenvInt("RATE_LIMIT_REQUESTS", 100),
			Window:  getenvSeconds("RATE_LIMIT_WINDOW_SECONDS", 60),
			Grace:   10 * time.Second,
		},
		Scorer: ScorerConfig{
			TextBaseURL:  getenv("SCORER_TEXT_BASE_URL", "http://127.0.0.1:9090"),
			ImageBaseURL: getenv("SCORER_IMAGE_BASE_URL", "http://127.0.0.1:9091"),
			APIKey:       os.Getenv("SCORER_API_KEY"),
			TextModel:    getenv("DEFAULT_MODEL", "unitary/toxic-bert"),
			ImageModel:   getenv("DEFAULT_IMAGE_MODEL", "Falconsai/nsfw_image_detection"),
		},
		Image: ImageConfig{
			MaxSizeMB:    getenvInt("IMAGE_MAX_SIZE_MB", 10),
			MaxDimension: getenvInt("IMAGE_MAX_DIMENSION", 4096),
			FetchTimeout: getenvSeconds("IMAGE_URL_TIMEOUT", 10),
		},
		Thresholds: map[string]float64{
			"harassment": getenvFloat("THRESHOLD_HARASSMENT", 0.7),
			"hate":       getenvFloat("THRESHOLD_HATE", 0.7),
			"profanity":  getenvFloat("THRESHOLD_PROFANITY", 0.6),
			"sexual":     getenvFloat("THRESHOLD_SEXUAL", 0.7),
			"spam":       getenvFloat("THRESHOLD_SPAM", 0.8),
			"violence":   getenvFloat("THRESHOLD_VIOLENCE", 0.6),
		},
	}
}

// getenv returns the value of the environment variable key or def if not set.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvSeconds(key string, def int) time.Duration {
	return time.Duration(getenvInt(key, def)) * time.Second
}
