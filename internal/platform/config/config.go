package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/geo"
)

// Session store backends.
const (
	SessionStoreFirestore = "firestore"
	SessionStoreRedis     = "redis"
	SessionStoreMemory    = "memory"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port                string
	GinMode             string
	FirebaseProjectID   string
	FirebaseCredsBase64 string
	FirebaseCredsFile   string
	FirestoreEmulator   string
	RedisURL            string
	RedisDB             int
	CacheTTL            time.Duration
	SessionStore        string
	AllowedOrigins      string
	PublicBaseURL       string
	GeoIPBaseURL        string
	GeoIPMock           bool
	LocationTimeout     time.Duration
	LocationMaxAge      time.Duration
	ServiceArea         geo.Bounds
	RateLimitRPS        float64
	RateLimitBurst      int
}

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "release"),
		FirebaseProjectID:   strings.TrimSpace(os.Getenv("FIREBASE_PROJECT_ID")),
		FirebaseCredsBase64: strings.TrimSpace(os.Getenv("FIREBASE_CREDS_BASE64")),
		FirebaseCredsFile:   strings.TrimSpace(os.Getenv("FIREBASE_CREDS_FILE")),
		FirestoreEmulator:   strings.TrimSpace(os.Getenv("FIRESTORE_EMULATOR_HOST")),
		RedisURL:            strings.TrimSpace(os.Getenv("REDIS_URL")),
		SessionStore:        strings.ToLower(getEnv("SESSION_STORE", SessionStoreFirestore)),
		AllowedOrigins:      strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
		PublicBaseURL:       strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		GeoIPBaseURL:        getEnv("GEOIP_BASE_URL", "https://ipapi.co"),
	}

	var err error
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}
	if cfg.CacheTTL, err = parseDurationEnv("CACHE_TTL", 2*time.Minute); err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cfg.GeoIPMock, err = parseBoolEnv("GEOIP_MOCK", false); err != nil {
		return Config{}, fmt.Errorf("parse GEOIP_MOCK: %w", err)
	}
	if cfg.LocationTimeout, err = parseDurationEnv("LOCATION_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse LOCATION_TIMEOUT: %w", err)
	}
	if cfg.LocationMaxAge, err = parseDurationEnv("LOCATION_MAX_AGE", 5*time.Minute); err != nil {
		return Config{}, fmt.Errorf("parse LOCATION_MAX_AGE: %w", err)
	}
	if cfg.RateLimitRPS, err = parseFloatEnv("RATE_LIMIT_RPS", 10); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = parseIntEnv("RATE_LIMIT_BURST", 20); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_BURST: %w", err)
	}

	area := geo.JeffreysBay
	for key, dst := range map[string]*float64{
		"SERVICE_AREA_NORTH": &area.North,
		"SERVICE_AREA_SOUTH": &area.South,
		"SERVICE_AREA_EAST":  &area.East,
		"SERVICE_AREA_WEST":  &area.West,
	} {
		if *dst, err = parseFloatEnv(key, *dst); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", key, err)
		}
	}
	cfg.ServiceArea = area

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.FirebaseProjectID == "" {
		return errors.New("FIREBASE_PROJECT_ID is required")
	}
	if c.FirestoreEmulator == "" && c.FirebaseCredsBase64 == "" && c.FirebaseCredsFile == "" {
		return errors.New("provide FIREBASE_CREDS_BASE64 or FIREBASE_CREDS_FILE for Firestore auth")
	}
	switch c.SessionStore {
	case SessionStoreFirestore, SessionStoreMemory:
	case SessionStoreRedis:
		if c.RedisURL == "" {
			return errors.New("SESSION_STORE=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be firestore, redis or memory, got %q", c.SessionStore)
	}
	if c.ServiceArea.North <= c.ServiceArea.South || c.ServiceArea.East <= c.ServiceArea.West {
		return errors.New("SERVICE_AREA bounds are inverted")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// FirebaseCredentialsJSON returns the service account JSON bytes and the source used.
func (c Config) FirebaseCredentialsJSON() ([]byte, string, error) {
	if c.FirebaseCredsBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(c.FirebaseCredsBase64)
		if err != nil {
			return nil, "base64", fmt.Errorf("decode FIREBASE_CREDS_BASE64: %w", err)
		}
		return decoded, "base64", nil
	}
	if c.FirebaseCredsFile != "" {
		data, err := os.ReadFile(c.FirebaseCredsFile)
		if err != nil {
			return nil, "file", fmt.Errorf("read FIREBASE_CREDS_FILE: %w", err)
		}
		return data, "file", nil
	}
	return nil, "", errors.New("no firebase credentials found")
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseBoolEnv(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}

func parseFloatEnv(key string, defaultVal float64) (float64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(val, 64)
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}
