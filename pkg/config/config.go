package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/database"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv        string
	LogLevel      string
	UserID        string
	EncryptionKey string
	Timezone      string

	// Queue storage
	QueueURL    string
	QueueDriver string
	SQLitePath  string
	// QueueMode is auto, native or relay.
	QueueMode string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Remote data store
	APIBaseURL  string
	APIKey      string
	AccessToken string

	// Interceptor
	AppOrigin         string
	PrecacheVersion   string
	CrossOriginHosts  []string
	APITimeout        time.Duration
	NavigationTimeout time.Duration
	ProxyAddr         string

	// Replay
	ReplayTimeout        time.Duration
	SyncInterval         time.Duration
	SyncStatsInterval    time.Duration
	RejectionPolicy      string
	RefreshCredentials   bool
	ConnectivityProbeURL string
	ConnectivityInterval time.Duration

	// Reminder
	ReminderInterval time.Duration

	// Worker
	WorkerHealthAddr string
	// WorkerMCP also serves the MCP tools from the worker process.
	WorkerMCP        bool

	// OAuth
	OAuthClientID     string
	OAuthClientSecret string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthRefreshToken string
	OAuthScopes       string

	// CalDAV vacation import
	CalDAVURL      string
	CalDAVUsername string
	CalDAVPassword string
	CalDAVCalendar string

	// MCP
	MCPAddr      string
	MCPAuthToken string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		UserID:        getEnv("LOGMYJOB_USER_ID", "00000000-0000-0000-0000-000000000001"),
		EncryptionKey: getEnv("LOGMYJOB_ENCRYPTION_KEY", ""),
		Timezone:      getEnv("TIMEZONE", "Europe/Paris"),

		QueueURL:   getEnv("QUEUE_URL", ""),
		SQLitePath: getEnv("SQLITE_PATH", defaultSQLitePath()),
		QueueMode:  getEnv("QUEUE_MODE", "auto"),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:54321"),
		APIKey:      getEnv("API_KEY", ""),
		AccessToken: getEnv("ACCESS_TOKEN", ""),

		AppOrigin:       getEnv("APP_ORIGIN", "http://localhost:8080"),
		PrecacheVersion: getEnv("PRECACHE_VERSION", "v1"),
		CrossOriginHosts: getListEnv("CROSS_ORIGIN_HOSTS", []string{
			"fonts.googleapis.com",
			"fonts.gstatic.com",
			"cdn.tailwindcss.com",
			"cdn.jsdelivr.net",
		}),
		APITimeout:        getDurationEnv("API_TIMEOUT", 10*time.Second),
		NavigationTimeout: getDurationEnv("NAVIGATION_TIMEOUT", 5*time.Second),
		ProxyAddr:         getEnv("PROXY_ADDR", "127.0.0.1:8090"),

		ReplayTimeout:        getDurationEnv("REPLAY_TIMEOUT", 10*time.Second),
		SyncInterval:         getDurationEnv("SYNC_INTERVAL", time.Minute),
		SyncStatsInterval:    getDurationEnv("SYNC_STATS_INTERVAL", 30*time.Second),
		RejectionPolicy:      getEnv("REJECTION_POLICY", "retain"),
		RefreshCredentials:   getBoolEnv("REFRESH_CREDENTIALS", false),
		ConnectivityProbeURL: getEnv("CONNECTIVITY_PROBE_URL", ""),
		ConnectivityInterval: getDurationEnv("CONNECTIVITY_INTERVAL", 5*time.Second),

		ReminderInterval: getDurationEnv("REMINDER_INTERVAL", 15*time.Minute),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
		WorkerMCP:        getBoolEnv("WORKER_MCP", false),

		OAuthClientID:     getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthAuthURL:      getEnv("OAUTH_AUTH_URL", ""),
		OAuthTokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
		OAuthRefreshToken: getEnv("OAUTH_REFRESH_TOKEN", ""),
		OAuthScopes:       getEnv("OAUTH_SCOPES", ""),

		CalDAVURL:      getEnv("CALDAV_URL", ""),
		CalDAVUsername: getEnv("CALDAV_USERNAME", ""),
		CalDAVPassword: getEnv("CALDAV_PASSWORD", ""),
		CalDAVCalendar: getEnv("CALDAV_CALENDAR", ""),

		MCPAddr:      getEnv("MCP_ADDR", "127.0.0.1:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),
	}

	cfg.QueueDriver = database.DetectDriver(cfg.QueueURL).String()

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// QueueDSN returns the connection string for the configured queue driver.
// The local SQLite file is used when no QUEUE_URL is set.
func (c *Config) QueueDSN() string {
	if c.QueueURL == "" {
		return c.SQLitePath
	}
	return c.QueueURL
}

// Location resolves the configured timezone, falling back to the local zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".logmyjob", "queue.db")
	}
	return filepath.Join(home, ".logmyjob", "queue.db")
}
