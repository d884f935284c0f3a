// Package config provides centralized default values for the lead desk.
//
// Values come from the process environment, a .env file in the working
// directory and, when requested, a TOML file. Real environment variables
// always win.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if _, err := os.Stat(".env"); err != nil {
			return
		}
		log.Println("Loading configuration overrides from .env file...")
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Failed to load .env: %v", err)
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, redact(key, val), defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%t (default: %t)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	log.Printf("Config override: %s=%s", key, strings.Join(out, ","))
	return out
}

// Secrets are never echoed in override logs.
func redact(key, val string) string {
	upper := strings.ToUpper(key)
	if strings.Contains(upper, "SECRET") || strings.Contains(upper, "TOKEN") || strings.Contains(upper, "KEY") {
		return "***"
	}
	return val
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	ShutdownTimeout    time.Duration
	CORSOrigins        []string
	AppBaseURL         string
	GinMode            string

	// Storage
	DataDir         string
	StoreBackend    string
	SQLitePath      string
	LibSQLURL       string
	LibSQLAuthToken string

	// Database Pool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// Sessions and login
	SessionSecret     string
	SessionTTL        time.Duration
	SessionCookieName string
	CookieSecure      bool
	VisitCookieName   string
	LoginCodeTTL      time.Duration

	// Telegram
	TelegramBotToken    string
	TelegramBotUsername string
	AdminTelegramID     int64
	BotPollTimeout      int
	NotifyTimeout       time.Duration

	// Mail
	ResendAPIKey string
	MailFrom     string
	MailFromName string

	// Live feed
	FeedPingInterval time.Duration

	// Logging
	LogLevel        string
	LogDirectory    string
	LogToFile       bool
	LogToConsole    bool
	LogJSON         bool
	PerfMaxEntries  int
	PerfSlowRequest time.Duration
)

func init() {
	loadEnvFile()
	apply()
}

func apply() {
	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)
	ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	CORSOrigins = getEnvList("CORS_ORIGINS", []string{"http://localhost:4321"})
	AppBaseURL = strings.TrimRight(getEnvString("APP_BASE_URL", ""), "/")
	GinMode = getEnvString("GIN_MODE", "release")

	// Storage
	DataDir = getEnvString("DATA_DIR", "data")
	StoreBackend = getEnvString("STORE_BACKEND", "file")
	SQLitePath = getEnvString("SQLITE_PATH", "data/records.db")
	LibSQLURL = getEnvString("TURSO_DATABASE_URL", "")
	LibSQLAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")

	// Database Pool
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// Sessions and login
	SessionSecret = getEnvString("SESSION_SECRET", "dev-secret-key")
	SessionTTL = getEnvDuration("SESSION_TTL", 30*24*time.Hour)
	SessionCookieName = getEnvString("SESSION_COOKIE", "pm_session")
	CookieSecure = getEnvBool("COOKIE_SECURE", false)
	VisitCookieName = getEnvString("VISIT_COOKIE", "pm_visit")
	LoginCodeTTL = getEnvDuration("LOGIN_CODE_TTL", 600*time.Second)

	// Telegram
	TelegramBotToken = getEnvString("TELEGRAM_BOT_TOKEN", "")
	TelegramBotUsername = getEnvString("TELEGRAM_BOT_USERNAME", "")
	AdminTelegramID = getEnvInt64("ADMIN_TELEGRAM_ID", 1547353132)
	BotPollTimeout = getEnvInt("BOT_POLL_TIMEOUT_SECONDS", 30)
	NotifyTimeout = getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)

	// Mail
	ResendAPIKey = getEnvString("RESEND_API_KEY", "")
	MailFrom = getEnvString("MAIL_FROM", "noreply@peakyminds.school")
	MailFromName = getEnvString("MAIL_FROM_NAME", "Peaky Minds")

	// Live feed
	FeedPingInterval = getEnvDuration("FEED_PING_INTERVAL", 30*time.Second)

	// Logging
	LogLevel = getEnvString("LOG_LEVEL", "info")
	LogDirectory = getEnvString("LOG_DIR", "logs")
	LogToFile = getEnvBool("LOG_TO_FILE", false)
	LogToConsole = getEnvBool("LOG_TO_CONSOLE", true)
	LogJSON = getEnvBool("LOG_JSON", true)
	PerfMaxEntries = getEnvInt("PERF_MAX_ENTRIES", 1000)
	PerfSlowRequest = getEnvDuration("PERF_SLOW_THRESHOLD", 500*time.Millisecond)
}

// Path joins name under DataDir.
func Path(elem ...string) string {
	return filepath.Join(append([]string{DataDir}, elem...)...)
}
