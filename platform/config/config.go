// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends for the persistent cache tier.
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// CacheConfig provides settings for the two cache tiers.
type CacheConfig interface {
	GetCacheBackend() string
	GetMemoryCacheTTL() time.Duration
	GetNeighborhoodCacheTTL() time.Duration
	GetCrimeCacheTTL() time.Duration
	GetAmenityCacheTTL() time.Duration
	GetAirQualityCacheTTL() time.Duration
}

// ProviderConfig provides endpoints and timeouts for the external data providers.
type ProviderConfig interface {
	GetPDOKBaseURL() string
	GetCBSODataBaseURL() string
	GetOverpassURL() string
	GetLuchtmeetnetBaseURL() string
	GetNominatimURL() string
	GetProviderTimeout() time.Duration
	GetReportTimeout() time.Duration
}

// ScoringConfig provides the location of an optional scoring policy file.
type ScoringConfig interface {
	GetScoringPolicyFile() string
}

// SchedulerConfig provides settings for the asynq worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetCachePurgeInterval() time.Duration
	GetCachePurgeGrace() time.Duration
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	RedisURL         string
	RedisTLSInsecure bool
	CORSAllowAll     bool
	CORSOrigins      []string
	RateLimitRPS     float64
	RateLimitBurst   int

	CacheBackend         string
	MemoryCacheTTL       time.Duration
	NeighborhoodCacheTTL time.Duration
	CrimeCacheTTL        time.Duration
	AmenityCacheTTL      time.Duration
	AirQualityCacheTTL   time.Duration

	PDOKBaseURL         string
	CBSODataBaseURL     string
	OverpassURL         string
	LuchtmeetnetBaseURL string
	NominatimURL        string
	ProviderTimeout     time.Duration
	ReportTimeout       time.Duration

	ScoringPolicyFile string

	AsynqQueueName     string
	AsynqConcurrency   int
	CachePurgeInterval time.Duration
	CachePurgeGrace    time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// CacheConfig implementation
func (c *Config) GetCacheBackend() string                { return c.CacheBackend }
func (c *Config) GetMemoryCacheTTL() time.Duration       { return c.MemoryCacheTTL }
func (c *Config) GetNeighborhoodCacheTTL() time.Duration { return c.NeighborhoodCacheTTL }
func (c *Config) GetCrimeCacheTTL() time.Duration        { return c.CrimeCacheTTL }
func (c *Config) GetAmenityCacheTTL() time.Duration      { return c.AmenityCacheTTL }
func (c *Config) GetAirQualityCacheTTL() time.Duration   { return c.AirQualityCacheTTL }

// ProviderConfig implementation
func (c *Config) GetPDOKBaseURL() string            { return c.PDOKBaseURL }
func (c *Config) GetCBSODataBaseURL() string        { return c.CBSODataBaseURL }
func (c *Config) GetOverpassURL() string            { return c.OverpassURL }
func (c *Config) GetLuchtmeetnetBaseURL() string    { return c.LuchtmeetnetBaseURL }
func (c *Config) GetNominatimURL() string           { return c.NominatimURL }
func (c *Config) GetProviderTimeout() time.Duration { return c.ProviderTimeout }
func (c *Config) GetReportTimeout() time.Duration   { return c.ReportTimeout }

// ScoringConfig implementation
func (c *Config) GetScoringPolicyFile() string { return c.ScoringPolicyFile }

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetCachePurgeInterval() time.Duration { return c.CachePurgeInterval }
func (c *Config) GetCachePurgeGrace() time.Duration    { return c.CachePurgeGrace }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		RateLimitRPS:     floatOr(getEnv("RATE_LIMIT_RPS", "5"), 5),
		RateLimitBurst:   intOr(getEnv("RATE_LIMIT_BURST", "10"), 10),

		CacheBackend:         strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendPostgres)),
		MemoryCacheTTL:       durationOr(getEnv("MEMORY_CACHE_TTL", "10m"), 10*time.Minute),
		NeighborhoodCacheTTL: durationOr(getEnv("NEIGHBORHOOD_CACHE_TTL", "2160h"), 90*24*time.Hour),
		CrimeCacheTTL:        durationOr(getEnv("CRIME_CACHE_TTL", "720h"), 30*24*time.Hour),
		AmenityCacheTTL:      durationOr(getEnv("AMENITY_CACHE_TTL", "72h"), 3*24*time.Hour),
		AirQualityCacheTTL:   durationOr(getEnv("AIR_QUALITY_CACHE_TTL", "3h"), 3*time.Hour),

		PDOKBaseURL:         getEnv("PDOK_BASE_URL", "https://api.pdok.nl"),
		CBSODataBaseURL:     getEnv("CBS_ODATA_BASE_URL", "https://opendata.cbs.nl/ODataApi/odata"),
		OverpassURL:         getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		LuchtmeetnetBaseURL: getEnv("LUCHTMEETNET_BASE_URL", "https://api.luchtmeetnet.nl/open_api"),
		NominatimURL:        getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org/search"),
		ProviderTimeout:     durationOr(getEnv("PROVIDER_TIMEOUT", "10s"), 10*time.Second),
		ReportTimeout:       durationOr(getEnv("REPORT_TIMEOUT", "20s"), 20*time.Second),

		ScoringPolicyFile: getEnv("SCORING_POLICY_FILE", ""),

		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "context"),
		AsynqConcurrency:   intOr(getEnv("ASYNQ_CONCURRENCY", "4"), 4),
		CachePurgeInterval: durationOr(getEnv("CACHE_PURGE_INTERVAL", "6h"), 6*time.Hour),
		CachePurgeGrace:    durationOr(getEnv("CACHE_PURGE_GRACE", "168h"), 7*24*time.Hour),
	}

	switch cfg.CacheBackend {
	case CacheBackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when CACHE_BACKEND is %q", CacheBackendPostgres)
		}
	case CacheBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is %q", CacheBackendRedis)
		}
	case CacheBackendMemory:
	default:
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func durationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func floatOr(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func intOr(value string, fallback int) int {
	result, err := strconv.Atoi(value)
	if err != nil || result < 1 {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
