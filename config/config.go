package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresMirror   bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RegionsFile  string
	DataDir      string
	AuditCSVPath string
	SourceTag    string
	LogLevel     string

	MaxConcurrency      int
	RegionStartInterval time.Duration
	MaxResultsPerQuery  int
	ReviewSampleSize    int
	ReviewOrder         string
	ScrollRetries       int
	ReviewScrollRetries int
	ScrollWait          time.Duration
	DelayMin            time.Duration
	DelayMax            time.Duration
	NavInterval         time.Duration
	NavTimeout          time.Duration
	MaxRetries          int
	RetryBaseDelay      time.Duration

	DedupDistanceMeters    float64
	NameSimilarity         float64
	MinReviewsForRejection int

	Headless  bool
	ChromeBin string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	cfg := &Config{
		PostgresMirror:   getEnvBool("POSTGRES_MIRROR", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "showers"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RegionsFile:  getEnv("REGIONS_FILE", "./config/regions.json5"),
		DataDir:      getEnv("DATA_DIR", "./data"),
		AuditCSVPath: getEnv("AUDIT_CSV_PATH", "./output/verifications.csv"),
		SourceTag:    getEnv("SOURCE_TAG", "gmaps-scraper"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		MaxConcurrency:      getEnvInt("MAX_CONCURRENCY", 2),
		RegionStartInterval: getEnvMs("REGION_START_INTERVAL_MS", 5000),
		MaxResultsPerQuery:  getEnvInt("MAX_RESULTS_PER_QUERY", 60),
		ReviewSampleSize:    getEnvInt("REVIEW_SAMPLE_SIZE", 10),
		ReviewOrder:         strings.ToLower(getEnv("REVIEW_ORDER", "newest")),
		ScrollRetries:       getEnvInt("SCROLL_RETRIES", 3),
		ReviewScrollRetries: getEnvInt("REVIEW_SCROLL_RETRIES", 3),
		ScrollWait:          getEnvMs("SCROLL_WAIT_MS", 1500),
		DelayMin:            getEnvMs("DELAY_MIN_MS", 3000),
		DelayMax:            getEnvMs("DELAY_MAX_MS", 8000),
		NavInterval:         getEnvMs("NAV_INTERVAL_MS", 2000),
		NavTimeout:          getEnvMs("NAV_TIMEOUT_MS", 45000),
		MaxRetries:          getEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay:      getEnvMs("RETRY_BASE_DELAY_MS", 5000),

		DedupDistanceMeters:    getEnvFloat("DEDUP_DISTANCE_METERS", 150),
		NameSimilarity:         getEnvFloat("NAME_SIMILARITY", 1),
		MinReviewsForRejection: getEnvInt("MIN_REVIEWS_FOR_REJECTION", 1),

		Headless:  getEnvBool("HEADLESS", true),
		ChromeBin: getEnv("CHROME_BIN", ""),
	}

	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMin, cfg.DelayMax = cfg.DelayMax, cfg.DelayMin
	}
	if cfg.ReviewOrder != "newest" && cfg.ReviewOrder != "relevant" {
		log.Printf("[config] Unknown REVIEW_ORDER %q, using newest", cfg.ReviewOrder)
		cfg.ReviewOrder = "newest"
	}
	return cfg
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil && n >= 0 {
			return n
		}
		log.Printf("[config] Invalid %s=%q, using %d", key, val, fallback)
	}
	return fallback
}

func getEnvMs(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err == nil && f >= 0 {
			return f
		}
		log.Printf("[config] Invalid %s=%q, using %g", key, val, fallback)
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
		log.Printf("[config] Invalid %s=%q, using %t", key, val, fallback)
	}
	return fallback
}
