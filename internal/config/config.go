package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// App holds the runtime configuration. Values come from environment
// variables, then the optional YAML file named by CONFIG_FILE, then defaults.
type App struct {
	Env                 string
	HTTPPort            string
	DatabaseDriver      string
	DatabaseURL         string
	AutoMigrate         bool
	RedisAddr           string
	QueueBackend        string
	QueueKey            string
	JWTIssuer           string
	JWTSigningKey       string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RegistrationKeyHash string
	RateLimitPerMin     int
	Timezone            string
	SyncURL             string
	SyncSkip            bool
	SyncPullInterval    time.Duration
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	CORSOrigins         []string
}

// Load returns application config with sensible defaults.
func Load() App {
	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Printf("config file ignored: %v", err)
	}
	return load(source{file: file})
}

func load(s source) App {
	return App{
		Env:                 s.getEnv("APP_ENV", "dev"),
		HTTPPort:            s.getEnv("HTTP_PORT", "8081"),
		DatabaseDriver:      s.getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:         s.getEnv("DATABASE_URL", "file:gatelog.db?_foreign_keys=on"),
		AutoMigrate:         s.boolEnv("AUTO_MIGRATE", true),
		RedisAddr:           s.getEnv("REDIS_ADDR", "localhost:6379"),
		QueueBackend:        s.getEnv("QUEUE_BACKEND", "memory"),
		QueueKey:            s.getEnv("QUEUE_KEY", "gatelog:sync"),
		JWTIssuer:           s.getEnv("JWT_ISSUER", "gatelog"),
		JWTSigningKey:       s.getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:           s.durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:          s.durationEnv("REFRESH_TTL", 24*time.Hour),
		RegistrationKeyHash: s.getEnv("REGISTRATION_KEY_HASH", ""),
		RateLimitPerMin:     s.intEnv("RATE_LIMIT_PER_MIN", 120),
		Timezone:            s.getEnv("TIMEZONE", "Asia/Kolkata"),
		SyncURL:             s.getEnv("SYNC_URL", ""),
		SyncSkip:            s.boolEnv("SYNC_SKIP", true),
		SyncPullInterval:    s.durationEnv("SYNC_PULL_INTERVAL", time.Minute),
		CloudinaryCloudName: s.getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    s.getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: s.getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    s.getEnv("CLOUDINARY_FOLDER", "gatelog"),
		CORSOrigins:         splitList(s.getEnv("CORS_ORIGINS", "*")),
	}
}

// Location resolves Timezone, falling back to UTC.
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		log.Printf("unknown timezone %q, using UTC: %v", a.Timezone, err)
		return time.UTC
	}
	return loc
}

// CloudinaryConfigured reports whether QR image hosting is enabled.
func (a App) CloudinaryConfigured() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

// readFile loads a flat YAML mapping of the same keys as the environment.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch vv := v.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(vv))
			for _, p := range vv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(vv)
		}
	}
	return out, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return s.file[key]
}

func (s source) getEnv(key, fallback string) string {
	if val := s.lookup(key); val != "" {
		return val
	}
	return fallback
}

func (s source) durationEnv(key string, fallback time.Duration) time.Duration {
	if val := s.lookup(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func (s source) boolEnv(key string, fallback bool) bool {
	if val := s.lookup(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func (s source) intEnv(key string, fallback int) int {
	if val := s.lookup(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
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
