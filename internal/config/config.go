package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is everything the server reads from the environment.
type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		TimeZone string
	}

	API struct {
		BaseURL         string
		Timeout         time.Duration
		Token           string
		ServiceEmail    string
		ServicePassword string
		// Base URLs a session may switch to from its preferences.
		AllowedOverrides []string
	}

	JWT struct {
		Secret string
		TTL    time.Duration
	}

	Tracking struct {
		DeviceFeed       string // "rest" or "gtfsrt"
		GTFSRTURL        string
		FleetInterval    time.Duration
		PortalInterval   time.Duration
		AnimationTick    time.Duration
		SnapURL          string
		SnapTimeout      time.Duration
		GeocodeURL       string
		GeocodeUserAgent string
		RegionFile       string
	}

	Log struct {
		File  string
		Level string
	}

	MockData bool
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	cfg := &Config{}
	cfg.HTTPAddr = getEnv("HTTP_ADDR", "0.0.0.0:8080")
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", nil)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "password")
	cfg.Database.Name = getEnv("DB_NAME", "school_tracker")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.TimeZone = getEnv("DB_TIMEZONE", "UTC")

	cfg.API.BaseURL = strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000/api"), "/")
	cfg.API.Timeout = getEnvDuration("API_TIMEOUT", 15*time.Second)
	cfg.API.Token = getEnv("API_TOKEN", "")
	cfg.API.ServiceEmail = getEnv("API_SERVICE_EMAIL", "")
	cfg.API.ServicePassword = getEnv("API_SERVICE_PASSWORD", "")
	cfg.API.AllowedOverrides = getEnvList("API_BASE_URL_OVERRIDES", nil)

	cfg.JWT.Secret = getEnv("JWT_SECRET", "supersecret")
	cfg.JWT.TTL = getEnvDuration("JWT_TTL", 72*time.Hour)

	cfg.Tracking.DeviceFeed = strings.ToLower(getEnv("DEVICE_FEED", "rest"))
	cfg.Tracking.GTFSRTURL = getEnv("GTFSRT_URL", "")
	cfg.Tracking.FleetInterval = getEnvDuration("FLEET_POLL_INTERVAL", 5*time.Second)
	cfg.Tracking.PortalInterval = getEnvDuration("PORTAL_POLL_INTERVAL", 15*time.Second)
	cfg.Tracking.AnimationTick = getEnvDuration("ROUTE_ANIMATION_TICK", 120*time.Millisecond)
	cfg.Tracking.SnapURL = strings.TrimRight(getEnv("SNAP_URL", "https://router.project-osrm.org"), "/")
	cfg.Tracking.SnapTimeout = getEnvDuration("SNAP_TIMEOUT", 8*time.Second)
	cfg.Tracking.GeocodeURL = strings.TrimRight(getEnv("GEOCODE_URL", "https://nominatim.openstreetmap.org"), "/")
	cfg.Tracking.GeocodeUserAgent = getEnv("GEOCODE_USER_AGENT", "school-tracker/1.0")
	cfg.Tracking.RegionFile = getEnv("REGION_FILE", "")

	cfg.Log.File = getEnv("LOG_FILE", "./logs/app.log")
	cfg.Log.Level = getEnv("LOG_LEVEL", "debug")

	cfg.MockData = getEnvBool("MOCK_DATA", false)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Tracking.DeviceFeed {
	case "rest":
	case "gtfsrt":
		if c.Tracking.GTFSRTURL == "" {
			return fmt.Errorf("DEVICE_FEED=gtfsrt requires GTFSRT_URL")
		}
	default:
		return fmt.Errorf("unknown DEVICE_FEED %q", c.Tracking.DeviceFeed)
	}
	if c.Tracking.FleetInterval <= 0 || c.Tracking.PortalInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Database.Host, c.Database.User, c.Database.Password, c.Database.Name,
		c.Database.Port, c.Database.SSLMode, c.Database.TimeZone,
	)
}

// OverrideAllowed reports whether a session may point its client at baseURL.
func (c *Config) OverrideAllowed(baseURL string) bool {
	baseURL = strings.TrimRight(baseURL, "/")
	for _, allowed := range c.API.AllowedOverrides {
		if strings.TrimRight(allowed, "/") == baseURL {
			return true
		}
	}
	return false
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		logrus.WithField("key", key).Warn("ignoring non-boolean env value")
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logrus.WithField("key", key).Warn("ignoring invalid duration env value")
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
