package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/facescan/internal/facematch"
)

// Gallery sources.
const (
	GallerySourceDemo     = "demo"
	GallerySourceYAML     = "yaml"
	GallerySourcePostgres = "postgres"
	GallerySourceMariaDB  = "mariadb"
)

type Config struct {
	Match     MatchConfig
	Embedding EmbeddingConfig
	Gallery   GalleryConfig
	Database  DatabaseConfig
	Log       LogConfig
	Web       WebConfig
}

type MatchConfig struct {
	Threshold       float64 // defaults to 0.6
	ConfidenceBoost float64 // defaults to 1.2
	BandHigh        float64 // defaults to 0.8
	BandMedium      float64 // defaults to 0.6
}

type EmbeddingConfig struct {
	URL        string        // face embedding server, empty means stub extractor only
	Dim        int           // defaults to 128
	RetryAfter time.Duration // how long a failed model load is remembered (default 30s)
}

type GalleryConfig struct {
	Source     string // demo, yaml, postgres or mariadb (default demo)
	Path       string // seed file for the yaml source
	MariaDBDSN string // DSN of the external reference database (e.g., reader:secret@tcp(mariadb:3306)/reference)
	DemoSize   int    // defaults to 20
	DemoSeed   uint64 // defaults to 1
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LogConfig struct {
	Env   string // prod or dev (default dev)
	Level string
}

type WebConfig struct {
	Host          string // defaults to 0.0.0.0
	Port          int    // defaults to 8080
	SessionSecret string
	// AllowedOrigins lists browser origins accepted for CORS, from the
	// comma-separated WEB_ALLOWED_ORIGINS.
	AllowedOrigins []string
	SecureCookies  bool          // WEB_SECURE_COOKIES=true behind HTTPS
	SessionTTL     time.Duration // defaults to 24h
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float.
// Returns the default value if the env var is unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Match: MatchConfig{
			Threshold:       envFloat("MATCH_THRESHOLD", facematch.DefaultMatchThreshold),
			ConfidenceBoost: envFloat("MATCH_CONFIDENCE_BOOST", facematch.DefaultConfidenceBoost),
			BandHigh:        envFloat("MATCH_BAND_HIGH", facematch.DefaultBandHigh),
			BandMedium:      envFloat("MATCH_BAND_MEDIUM", facematch.DefaultBandMedium),
		},
		Embedding: EmbeddingConfig{
			URL:        os.Getenv("EMBEDDING_URL"),
			Dim:        envInt("EMBEDDING_DIM", 128),
			RetryAfter: time.Duration(envInt("EMBEDDING_RETRY_AFTER", 30)) * time.Second,
		},
		Gallery: GalleryConfig{
			Source:     envString("GALLERY_SOURCE", GallerySourceDemo),
			Path:       os.Getenv("GALLERY_PATH"),
			MariaDBDSN: os.Getenv("GALLERY_MARIADB_DSN"),
			DemoSize:   envInt("GALLERY_DEMO_SIZE", 20),
			DemoSeed:   uint64(envInt("GALLERY_DEMO_SEED", 1)),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Log: LogConfig{
			Env:   envString("LOG_ENV", "dev"),
			Level: os.Getenv("LOG_LEVEL"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			SecureCookies:  os.Getenv("WEB_SECURE_COOKIES") == "true",
			SessionTTL:     time.Duration(envInt("WEB_SESSION_TTL_HOURS", 24)) * time.Hour,
		},
	}
}

// MatchOptions converts the match settings into validated pipeline options.
func (c *Config) MatchOptions() (facematch.Options, error) {
	opts := facematch.DefaultOptions()
	opts.MatchThreshold = c.Match.Threshold
	opts.ConfidenceBoost = c.Match.ConfidenceBoost
	opts.Bands = facematch.Bands{High: c.Match.BandHigh, Medium: c.Match.BandMedium}
	if err := opts.Validate(); err != nil {
		return facematch.Options{}, fmt.Errorf("invalid MATCH_* settings: %w", err)
	}
	return opts, nil
}
