package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feed holds the polling and animation settings of one vehicle feed.
type Feed struct {
	Name              string
	URL               string
	PollInterval      time.Duration
	JumpThreshold     float64 // meters
	AnimationDuration time.Duration
}

type Config struct {
	Bus   Feed
	Train Feed

	FreshnessInterval time.Duration
	FrameRate         int

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	MetricsAddr string
	LogLevel    string

	DatabaseURL           string
	City                  string
	RoutesRefreshInterval time.Duration
}

// Feeds returns the enabled feeds in a stable order.
func (c *Config) Feeds() []Feed {
	var out []Feed
	for _, f := range []Feed{c.Bus, c.Train} {
		if f.URL != "" {
			out = append(out, f)
		}
	}
	return out
}

// FrameInterval is the animation step period.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	cfg.Bus = Feed{Name: "bus", URL: getenvDefault("BUS_FEED_URL", "http://localhost:5000/vehicles")}
	if os.Getenv("BUS_FEED_URL") == "-" {
		cfg.Bus.URL = ""
	}
	if cfg.Bus.PollInterval, err = millis("BUS_POLL_INTERVAL_MS", 5000); err != nil {
		return nil, err
	}
	if cfg.Bus.JumpThreshold, err = meters("BUS_JUMP_THRESHOLD_M", 800); err != nil {
		return nil, err
	}
	if cfg.Bus.AnimationDuration, err = millis("BUS_ANIMATION_MS", 1500); err != nil {
		return nil, err
	}

	cfg.Train = Feed{Name: "train", URL: strings.TrimSpace(os.Getenv("TRAIN_FEED_URL"))}
	if cfg.Train.PollInterval, err = millis("TRAIN_POLL_INTERVAL_MS", 15000); err != nil {
		return nil, err
	}
	if cfg.Train.JumpThreshold, err = meters("TRAIN_JUMP_THRESHOLD_M", 2000); err != nil {
		return nil, err
	}
	if cfg.Train.AnimationDuration, err = millis("TRAIN_ANIMATION_MS", 2000); err != nil {
		return nil, err
	}

	if len(cfg.Feeds()) == 0 {
		return nil, errors.New("BUS_FEED_URL or TRAIN_FEED_URL must be set")
	}

	if cfg.FreshnessInterval, err = millis("FRESHNESS_INTERVAL_MS", 1000); err != nil {
		return nil, err
	}

	cfg.FrameRate = 60
	if v := os.Getenv("FRAME_RATE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 240 {
			return nil, fmt.Errorf("invalid FRAME_RATE: %q", v)
		}
		cfg.FrameRate = n
	}

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "map")

	// Debug logging for NATS publish subjects
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		cfg.LogNATSSubjects = truthy(v)
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))

	// Optional GTFS database for route names: prefer DATABASE_URL / PG_DSN, else build from PG* vars
	cfg.DatabaseURL = firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN"))
	if cfg.DatabaseURL == "" && os.Getenv("PGHOST") != "" {
		host := os.Getenv("PGHOST")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := getenvDefault("PGDATABASE", "postgres")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			cfg.DatabaseURL = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}

	// City name for resolving the latest imported GTFS database
	cfg.City = firstNonEmpty(os.Getenv("CITY"), os.Getenv("CITY_NAME"))

	if v := os.Getenv("ROUTES_REFRESH_INTERVAL_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid ROUTES_REFRESH_INTERVAL_SEC: %q", v)
		}
		cfg.RoutesRefreshInterval = time.Duration(sec) * time.Second
	} else {
		cfg.RoutesRefreshInterval = 30 * time.Minute
	}

	return cfg, nil
}

func millis(key string, def int) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Millisecond, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func meters(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
