package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the stagewatch server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Scraper  ScraperConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ScraperConfig controls the ingestion pipeline: which sources run, how often,
// and how long a single source may take before it is abandoned for the cycle.
type ScraperConfig struct {
	Interval      time.Duration
	SourceTimeout time.Duration
	Concurrency   int
	Sources       []string
	Ticketmaster  TicketmasterConfig
	KPopNews      KPopNewsConfig
}

type TicketmasterConfig struct {
	BaseURL string
	APIKey  string
}

type KPopNewsConfig struct {
	FeedURL string
}

var validSources = map[string]bool{
	"ticketmaster": true,
	"kpopnews":     true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("STAGEWATCH_PORT", 8080),
			Env:  envString("STAGEWATCH_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Scraper: ScraperConfig{
			Interval:      envDuration("SCRAPE_INTERVAL", 30*time.Minute),
			SourceTimeout: envDuration("SCRAPE_SOURCE_TIMEOUT", 2*time.Minute),
			Concurrency:   envInt("SCRAPE_CONCURRENCY", 4),
			Sources:       envList("SCRAPE_SOURCES", []string{"ticketmaster", "kpopnews"}),
			Ticketmaster: TicketmasterConfig{
				BaseURL: envString("TICKETMASTER_BASE_URL", "https://app.ticketmaster.com/discovery/v2"),
				APIKey:  os.Getenv("TICKETMASTER_API_KEY"),
			},
			KPopNews: KPopNewsConfig{
				FeedURL: envString("KPOPNEWS_FEED_URL", "https://feeds.stagewatch.io/kpop-announcements.json"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Scraper.Interval <= 0 {
		return fmt.Errorf("SCRAPE_INTERVAL must be positive, got %s", c.Scraper.Interval)
	}
	if c.Scraper.SourceTimeout <= 0 {
		return fmt.Errorf("SCRAPE_SOURCE_TIMEOUT must be positive, got %s", c.Scraper.SourceTimeout)
	}
	if c.Scraper.Concurrency <= 0 {
		return fmt.Errorf("SCRAPE_CONCURRENCY must be positive, got %d", c.Scraper.Concurrency)
	}

	if len(c.Scraper.Sources) == 0 {
		return fmt.Errorf("SCRAPE_SOURCES must name at least one source")
	}
	for _, s := range c.Scraper.Sources {
		if !validSources[s] {
			return fmt.Errorf("SCRAPE_SOURCES contains unknown source %q: must be one of ticketmaster, kpopnews", s)
		}
	}

	if containsSource(c.Scraper.Sources, "ticketmaster") && c.Scraper.Ticketmaster.APIKey == "" {
		return fmt.Errorf("TICKETMASTER_API_KEY is required when ticketmaster is an enabled source")
	}

	return nil
}

func containsSource(sources []string, name string) bool {
	for _, s := range sources {
		if s == name {
			return true
		}
	}
	return false
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
