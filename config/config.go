package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxTarget mirrors the upper bound the extraction form allowed per batch.
const MaxTarget = 200

// Config holds all runtime configuration for the scraper.
type Config struct {
	Queries   []string
	Target    int
	Workers   int
	Headless  bool
	UserAgent string
	BaseURL   string
	OutFile   string
	CSVFile   string
	Verbose   bool

	// Browser
	ChromePath  string
	DownloadDir string

	// Timing
	WaitTimeout          time.Duration
	NavigateTimeout      time.Duration
	NavigateSettle       time.Duration
	ConsentSettle        time.Duration
	FeedSettle           time.Duration
	ScrollSettle         time.Duration
	ScrollIntoViewSettle time.Duration
	ActivateSettle       time.Duration
	DetailSettle         time.Duration
	ItemDelay            time.Duration
	GlobalTimeout        time.Duration

	// Email verification
	VerifyEmailMX bool
	DNSServers    []string

	// Storage (empty driver disables the SQL sink)
	DBDriver string
	DBDSN    string
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Target:   20,
		Workers:  1,
		Headless: true,
		UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		BaseURL: "https://www.google.com/maps",
		OutFile: "listings.json",

		WaitTimeout:          10 * time.Second,
		NavigateTimeout:      30 * time.Second,
		NavigateSettle:       3 * time.Second,
		ConsentSettle:        1 * time.Second,
		FeedSettle:           3 * time.Second,
		ScrollSettle:         3 * time.Second,
		ScrollIntoViewSettle: 1 * time.Second,
		ActivateSettle:       2 * time.Second,
		DetailSettle:         2 * time.Second,
		ItemDelay:            500 * time.Millisecond,
		GlobalTimeout:        90 * time.Minute,

		DNSServers: []string{"8.8.8.8:53", "1.1.1.1:53"},
	}
}

// Load reads an optional .env file and applies environment overrides on top
// of Default.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.Headless = getEnvBool("MAPS_HEADLESS", cfg.Headless)
	cfg.Target = getEnvInt("MAPS_TARGET", cfg.Target)
	cfg.Workers = getEnvInt("MAPS_WORKERS", cfg.Workers)
	cfg.BaseURL = getEnv("MAPS_BASE_URL", cfg.BaseURL)
	cfg.UserAgent = getEnv("MAPS_USER_AGENT", cfg.UserAgent)
	cfg.OutFile = getEnv("MAPS_OUT", cfg.OutFile)
	cfg.CSVFile = getEnv("MAPS_CSV", cfg.CSVFile)
	cfg.ChromePath = getEnv("CHROME_PATH", cfg.ChromePath)
	cfg.DownloadDir = getEnv("CHROME_DOWNLOAD_DIR", cfg.DownloadDir)
	cfg.ItemDelay = getEnvDuration("MAPS_ITEM_DELAY", cfg.ItemDelay)
	cfg.WaitTimeout = getEnvDuration("MAPS_WAIT_TIMEOUT", cfg.WaitTimeout)
	cfg.VerifyEmailMX = getEnvBool("MAPS_VERIFY_EMAIL_MX", cfg.VerifyEmailMX)
	if servers := SplitTrim(getEnv("MAPS_DNS_SERVERS", ""), ","); len(servers) > 0 {
		cfg.DNSServers = servers
	}
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DBDSN = getEnv("DB_DSN", cfg.DBDSN)
	if q := getEnv("MAPS_QUERIES", ""); q != "" {
		cfg.Queries = SplitTrim(q, ";")
	}
	return cfg
}

// Validate clamps the target to MaxTarget and rejects unusable values.
func (c *Config) Validate() error {
	if len(c.Queries) == 0 {
		return fmt.Errorf("at least one search query is required")
	}
	if c.Target > MaxTarget {
		c.Target = MaxTarget
	}
	if c.Target < 0 {
		return fmt.Errorf("target must not be negative, got %d", c.Target)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	switch c.DBDriver {
	case "", "pgx", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.DBDriver != "" && c.DBDSN == "" {
		return fmt.Errorf("db driver %q set without DB_DSN", c.DBDriver)
	}
	return nil
}

// SplitTrim splits s on sep and drops empty, space-only parts.
func SplitTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}
