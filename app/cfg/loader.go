package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBDriver   string `long:"db-driver" env:"DB_DRIVER" default:"sqlite" choice:"sqlite" choice:"mysql" description:"Database driver"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/market.db" description:"SQLite database file"`
	DBHost     string `long:"db-host" env:"DB_HOST" default:"localhost" description:"MySQL host"`
	DBPort     string `long:"db-port" env:"DB_PORT" default:"3306" description:"MySQL port"`
	DBUser     string `long:"db-user" env:"DB_USER" default:"market" description:"MySQL user"`
	DBPassword string `long:"db-password" env:"DB_PASSWORD" description:"MySQL password"`
	DBName     string `long:"db-name" env:"DB_NAME" default:"market" description:"MySQL database name"`

	RedisURL string `long:"redis-url" env:"REDIS_URL" description:"Redis URL for moderator cache and cycle locks (optional)"`

	// Reddit configuration
	RedditClientID     string `long:"reddit-client-id" env:"REDDIT_CLIENT_ID" description:"Reddit script app client ID" required:"true"`
	RedditClientSecret string `long:"reddit-client-secret" env:"REDDIT_CLIENT_SECRET" description:"Reddit script app secret" required:"true"`
	RedditUsername     string `long:"reddit-username" env:"REDDIT_USERNAME" description:"Reddit bot account" required:"true"`
	RedditPassword     string `long:"reddit-password" env:"REDDIT_PASSWORD" description:"Reddit bot account password" required:"true"`
	RequestsPerMinute  int    `long:"requests-per-minute" env:"REQUESTS_PER_MINUTE" default:"60" description:"Remote API request budget"`
	IngestMode         string `long:"ingest-mode" env:"INGEST_MODE" default:"api" choice:"api" choice:"atom" description:"How recent source posts are listed"`

	// Curation configuration
	TargetSub           string        `long:"target-sub" env:"TARGET_SUB" default:"xyMarket" description:"Community that receives reposts and the digest"`
	SourcesFile         string        `long:"sources-file" env:"SOURCES_FILE" description:"YAML file overriding the built-in source registry"`
	DigestTitle         string        `long:"digest-title" env:"DIGEST_TITLE" default:"Daily Thread" description:"Title of the pinned digest post"`
	DigestSlot          int           `long:"digest-slot" env:"DIGEST_SLOT" default:"1" description:"Pinned slot holding the digest post"`
	FreshnessWindow     time.Duration `long:"freshness-window" env:"FRESHNESS_WINDOW" default:"2h" description:"Maximum candidate age"`
	DedupWindow         time.Duration `long:"dedup-window" env:"DEDUP_WINDOW" default:"2h" description:"Horizon for the per-author repost check"`
	RetentionWindow     time.Duration `long:"retention-window" env:"RETENTION_WINDOW" default:"168h" description:"Age at which listings expire"`
	DigestMaxAge        time.Duration `long:"digest-max-age" env:"DIGEST_MAX_AGE" default:"24h" description:"Age at which the digest post is replaced"`
	ModeratorCacheTTL   time.Duration `long:"moderator-cache-ttl" env:"MODERATOR_CACHE_TTL" default:"0s" description:"Moderator list cache TTL (0 disables caching)"`
	DiscoveryInterval   time.Duration `long:"discovery-interval" env:"DISCOVERY_INTERVAL" default:"10m" description:"Discovery cycle interval"`
	MaintenanceInterval time.Duration `long:"maintenance-interval" env:"MAINTENANCE_INTERVAL" default:"1h" description:"Expiration and digest cycle interval"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"golang:market-comb:v1 (by /u/xyMarketBot)" description:"User agent string for remote requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments (os.Args when nil) on top of the
// environment. A .env file in the working directory is applied first.
func LoadArgs(args []string) (*Cfg, error) {
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBDriver:            raw.DBDriver,
		DBPath:              raw.DBPath,
		DBHost:              raw.DBHost,
		DBPort:              raw.DBPort,
		DBUser:              raw.DBUser,
		DBPassword:          raw.DBPassword,
		DBName:              raw.DBName,
		RedisURL:            raw.RedisURL,
		RedditClientID:      raw.RedditClientID,
		RedditClientSecret:  raw.RedditClientSecret,
		RedditUsername:      raw.RedditUsername,
		RedditPassword:      raw.RedditPassword,
		RequestsPerMinute:   raw.RequestsPerMinute,
		IngestMode:          raw.IngestMode,
		TargetSub:           raw.TargetSub,
		SourcesFile:         raw.SourcesFile,
		DigestTitle:         raw.DigestTitle,
		DigestSlot:          raw.DigestSlot,
		FreshnessWindow:     raw.FreshnessWindow,
		DedupWindow:         raw.DedupWindow,
		RetentionWindow:     raw.RetentionWindow,
		DigestMaxAge:        raw.DigestMaxAge,
		ModeratorCacheTTL:   raw.ModeratorCacheTTL,
		DiscoveryInterval:   raw.DiscoveryInterval,
		MaintenanceInterval: raw.MaintenanceInterval,
		Port:                raw.Port,
		WorkerCount:         raw.WorkerCount,
		APIAccessKey:        raw.APIAccessKey,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	positiveDurations := map[string]time.Duration{
		"freshness window":     c.FreshnessWindow,
		"dedup window":         c.DedupWindow,
		"retention window":     c.RetentionWindow,
		"digest max age":       c.DigestMaxAge,
		"discovery interval":   c.DiscoveryInterval,
		"maintenance interval": c.MaintenanceInterval,
	}

	for name, value := range positiveDurations {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if c.ModeratorCacheTTL < 0 {
		return fmt.Errorf("moderator cache ttl must be non-negative")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.RequestsPerMinute < 1 {
		return fmt.Errorf("requests per minute must be at least 1")
	}
	if c.DigestSlot < 1 || c.DigestSlot > 2 {
		return fmt.Errorf("digest slot must be 1 or 2")
	}
	if c.DBDriver == "mysql" && c.DBPassword == "" {
		return fmt.Errorf("db password is required for mysql")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
