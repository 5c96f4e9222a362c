package config

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"skua/internal/domain"
	"skua/internal/support"
)

type Config struct {
	Cache     CacheConfig
	Sources   SourcesConfig
	Blacklist BlacklistConfig
	Checker   CheckerConfig
	Fetch     FetchConfig
	Database  DatabaseConfig
	Geo       GeoConfig
	Metrics   MetricsConfig
	Runtime   RuntimeConfig
}

type CacheConfig struct {
	Enabled         bool
	File            string
	TTL             time.Duration
	MinHealthScore  float64
	MinHealthyCount int
	// MaxEntryAge bounds cache growth: entries not checked for this long
	// and without a single recorded success are dropped at merge time.
	MaxEntryAge time.Duration

	// RedisAddr switches the snapshot backend from the JSON file to a
	// Redis key when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

type SourcesConfig struct {
	Entries        []domain.ProxySource
	BaseSampleSize int
	FetchTimeout   time.Duration
}

type BlacklistConfig struct {
	// Static lists "host:port" endpoints excluded from collection.
	Static []string
	// RedisKey names the shared Redis set merged in when Redis is
	// configured as the cache backend.
	RedisKey string
}

type CheckerConfig struct {
	ProbeURL  string
	Timeout   time.Duration
	Workers   int
	Transport string // tcp, quic or http3
}

type FetchConfig struct {
	Timeout time.Duration
}

type DatabaseConfig struct {
	// DSN selects postgres; SQLitePath selects sqlite. History recording
	// is disabled when both are empty.
	DSN        string
	SQLitePath string
}

type GeoConfig struct {
	MMDBPath string
}

type MetricsConfig struct {
	Port int // 0 disables the endpoint
}

type RuntimeConfig struct {
	RefreshInterval time.Duration
}

var (
	instance *Config
	once     sync.Once
)

// GetConfig loads the configuration exactly once from the environment
// (plus an optional .env file) and returns the shared instance.
func GetConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Debug("no .env file found, using process environment")
		}
		instance = loadFromEnv()
	})
	return instance
}

func loadFromEnv() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled:         support.GetEnvBool("SKUA_CACHE_ENABLED", true),
			File:            support.GetEnv("SKUA_CACHE_FILE", "proxy_cache.json"),
			TTL:             support.GetEnvDuration("SKUA_CACHE_TTL", 3600, time.Second),
			MinHealthScore:  support.GetEnvFloat("SKUA_MIN_HEALTH_SCORE", 30),
			MinHealthyCount: support.GetEnvInt("SKUA_MIN_HEALTHY_COUNT", 10),
			MaxEntryAge:     support.GetEnvDuration("SKUA_CACHE_MAX_AGE_DAYS", 14, 24*time.Hour),
			RedisAddr:       support.GetEnv("SKUA_REDIS_ADDR", ""),
			RedisPassword:   support.GetEnv("SKUA_REDIS_PASSWORD", ""),
			RedisDB:         support.GetEnvInt("SKUA_REDIS_DB", 0),
			RedisKey:        support.GetEnv("SKUA_REDIS_KEY", "skua:proxy-cache"),
		},
		Sources: SourcesConfig{
			Entries:        sourcesFromEnv(),
			BaseSampleSize: support.GetEnvInt("SKUA_BASE_SAMPLE_SIZE", 200),
			FetchTimeout:   support.GetEnvDuration("SKUA_SOURCE_TIMEOUT", 30, time.Second),
		},
		Blacklist: BlacklistConfig{
			Static:   splitList(support.GetEnv("SKUA_BLACKLIST", "")),
			RedisKey: support.GetEnv("SKUA_BLACKLIST_REDIS_KEY", "skua:blacklist"),
		},
		Checker: CheckerConfig{
			ProbeURL:  support.GetEnv("SKUA_CHECK_URL", "http://httpbin.org/ip"),
			Timeout:   support.GetEnvDuration("SKUA_CHECK_TIMEOUT_MS", 5000, time.Millisecond),
			Workers:   support.GetEnvInt("SKUA_CHECK_WORKERS", 20),
			Transport: support.NormalizeTransportProtocol(support.GetEnv("SKUA_CHECK_TRANSPORT", support.TransportTCP)),
		},
		Fetch: FetchConfig{
			Timeout: support.GetEnvDuration("SKUA_FETCH_TIMEOUT_MS", 30000, time.Millisecond),
		},
		Database: DatabaseConfig{
			DSN:        support.GetEnv("SKUA_DATABASE_DSN", ""),
			SQLitePath: support.GetEnv("SKUA_DATABASE_PATH", ""),
		},
		Geo: GeoConfig{
			MMDBPath: support.GetEnv("SKUA_GEOIP_DB", ""),
		},
		Metrics: MetricsConfig{
			Port: support.GetEnvInt("SKUA_METRICS_PORT", 0),
		},
		Runtime: RuntimeConfig{
			RefreshInterval: support.GetEnvDuration("SKUA_REFRESH_INTERVAL", 0, time.Second),
		},
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
