package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis configuration (optional)
	RedisURL string

	// Reddit configuration
	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RequestsPerMinute  int
	IngestMode         string

	// Curation configuration
	TargetSub           string
	SourcesFile         string
	DigestTitle         string
	DigestSlot          int
	FreshnessWindow     time.Duration
	DedupWindow         time.Duration
	RetentionWindow     time.Duration
	DigestMaxAge        time.Duration
	ModeratorCacheTTL   time.Duration
	DiscoveryInterval   time.Duration
	MaintenanceInterval time.Duration

	// Application configuration
	Port         string
	WorkerCount  int
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// MySQLDSN returns the go-sql-driver data source name for the configured database.
func (c *Cfg) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&multiStatements=true"
}
