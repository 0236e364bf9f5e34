package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mohamedkhairy/session-range-stats/internal/orb"
	"github.com/mohamedkhairy/session-range-stats/internal/session"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	ORB     ORBConfig
	Bars    BarsConfig
	Tables  TablesConfig
	Cache   CacheConfig
	Export  ExportConfig
	API     APIConfig
	Refresh RefreshConfig
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// ORBConfig holds the session range engine configuration
type ORBConfig struct {
	Symbols           []string
	OpeningDuration   time.Duration
	LevelStep         float64
	WindowSize        time.Duration
	TrueOpenTimezone  string // empty disables the true open columns
	DuplicateBarLimit int
	SessionsFile      string

	// Sessions is resolved by Load from SessionsFile or the built-in defaults
	Sessions []session.Spec
}

// BarsConfig selects where bars are read from
type BarsConfig struct {
	Source   string // "csv" or "postgres"
	CSVDir   string
	Timezone string
	Lookback time.Duration
}

// TablesConfig selects where computed tables are persisted
type TablesConfig struct {
	Store      string // "none", "postgres" or "sqlite"
	SQLitePath string
}

// CacheConfig holds the Redis table cache configuration
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// ExportConfig holds table export configuration
type ExportConfig struct {
	Dir      string
	Format   string // "", "csv" or "xlsx"
	UnixTime bool
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port         int
	RateLimitRPS int
	JWTSecret    string // empty leaves the recompute endpoint open
}

// RefreshConfig holds the scheduled recompute configuration
type RefreshConfig struct {
	Cron string // empty disables the schedule
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "session_range_stats"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			MaxRetries:      getEnvAsInt("DB_MAX_RETRIES", 3),
			RetryDelay:      getEnvAsDuration("DB_RETRY_DELAY", 100*time.Millisecond),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		ORB: ORBConfig{
			Symbols:           getEnvAsStringSlice("ORB_SYMBOLS", []string{}),
			OpeningDuration:   getEnvAsDuration("ORB_OPENING_DURATION", orb.DefaultOpeningDuration),
			LevelStep:         getEnvAsFloat("ORB_LEVEL_STEP", orb.DefaultLevelStep),
			WindowSize:        getEnvAsDuration("ORB_WINDOW_SIZE", orb.DefaultWindowSize),
			TrueOpenTimezone:  getEnv("ORB_TRUE_OPEN_TZ", "America/New_York"),
			DuplicateBarLimit: getEnvAsInt("ORB_DUPLICATE_BAR_LIMIT", 0),
			SessionsFile:      getEnv("ORB_SESSIONS_FILE", ""),
		},
		Bars: BarsConfig{
			Source:   getEnv("BAR_SOURCE", "csv"),
			CSVDir:   getEnv("BAR_CSV_DIR", "data/bars"),
			Timezone: getEnv("BAR_TIMEZONE", "America/New_York"),
			Lookback: getEnvAsDuration("BAR_LOOKBACK", 0),
		},
		Tables: TablesConfig{
			Store:      getEnv("TABLE_STORE", "none"),
			SQLitePath: getEnv("SQLITE_PATH", "data/session_range_stats.db"),
		},
		Cache: CacheConfig{
			Enabled: getEnvAsBool("CACHE_ENABLED", false),
			TTL:     getEnvAsDuration("CACHE_TTL", 24*time.Hour),
		},
		Export: ExportConfig{
			Dir:      getEnv("EXPORT_DIR", "data"),
			Format:   getEnv("EXPORT_FORMAT", ""),
			UnixTime: getEnvAsBool("EXPORT_UNIX_TIME", false),
		},
		API: APIConfig{
			Port:         getEnvAsInt("API_PORT", 8090),
			RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 100),
			JWTSecret:    getEnv("API_JWT_SECRET", ""),
		},
		Refresh: RefreshConfig{
			Cron: getEnv("REFRESH_CRON", ""),
		},
	}

	sessions, err := LoadSessions(cfg.ORB.SessionsFile, cfg.ORB.OpeningDuration)
	if err != nil {
		return nil, err
	}
	cfg.ORB.Sessions = sessions

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.ORB.Symbols) == 0 {
		return fmt.Errorf("%w: ORB_SYMBOLS must contain at least one symbol", ErrInvalidConfig)
	}
	if c.ORB.LevelStep <= 0 {
		return fmt.Errorf("%w: ORB_LEVEL_STEP must be positive", ErrInvalidConfig)
	}
	if c.ORB.DuplicateBarLimit < 0 {
		return fmt.Errorf("%w: ORB_DUPLICATE_BAR_LIMIT must not be negative", ErrInvalidConfig)
	}
	if len(c.ORB.Sessions) == 0 {
		return fmt.Errorf("%w: at least one session is required", ErrInvalidConfig)
	}
	for i := range c.ORB.Sessions {
		if err := c.ORB.Sessions[i].Validate(); err != nil {
			return err
		}
	}
	if _, err := session.NewChain(c.ORB.Sessions); err != nil {
		return err
	}
	if c.ORB.TrueOpenTimezone != "" {
		if _, err := session.LoadLocation(c.ORB.TrueOpenTimezone); err != nil {
			return err
		}
	}
	if _, err := session.LoadLocation(c.Bars.Timezone); err != nil {
		return err
	}

	switch c.Bars.Source {
	case "csv":
		if c.Bars.CSVDir == "" {
			return fmt.Errorf("%w: BAR_CSV_DIR is required for the csv source", ErrInvalidConfig)
		}
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("%w: DB_HOST is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown BAR_SOURCE %q", ErrInvalidConfig, c.Bars.Source)
	}

	switch c.Tables.Store {
	case "none", "postgres":
	case "sqlite":
		if c.Tables.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for the sqlite store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown TABLE_STORE %q", ErrInvalidConfig, c.Tables.Store)
	}

	if c.Cache.Enabled && c.Redis.Host == "" {
		return fmt.Errorf("%w: REDIS_HOST is required when the cache is enabled", ErrInvalidConfig)
	}

	switch c.Export.Format {
	case "", "csv", "xlsx":
	default:
		return fmt.Errorf("%w: unknown EXPORT_FORMAT %q", ErrInvalidConfig, c.Export.Format)
	}
	return nil
}

// EngineConfig returns the session range engine configuration
func (c *Config) EngineConfig() (orb.Config, error) {
	var trueOpen *time.Location
	if c.ORB.TrueOpenTimezone != "" {
		loc, err := session.LoadLocation(c.ORB.TrueOpenTimezone)
		if err != nil {
			return orb.Config{}, err
		}
		trueOpen = loc
	}
	return orb.Config{
		Sessions:          c.ORB.Sessions,
		LevelStep:         c.ORB.LevelStep,
		WindowSize:        c.ORB.WindowSize,
		TrueOpenLocation:  trueOpen,
		DuplicateBarLimit: c.ORB.DuplicateBarLimit,
	}, nil
}

// sessionFile is the YAML layout of ORB_SESSIONS_FILE
type sessionFile struct {
	Sessions []sessionEntry `yaml:"sessions"`
}

type sessionEntry struct {
	ID                 string `yaml:"id"`
	Name               string `yaml:"name"`
	OpeningStart       string `yaml:"opening_start"`
	OpeningDuration    string `yaml:"opening_duration"`
	SessionEnd         string `yaml:"session_end"`
	Timezone           string `yaml:"timezone"`
	Previous           string `yaml:"previous"`
	PreviousTradingDay bool   `yaml:"previous_trading_day"`
}

// LoadSessions reads session specs from a YAML file. An empty path returns
// the built-in New York, London and Asia sessions.
func LoadSessions(path string, openingDuration time.Duration) ([]session.Spec, error) {
	if path == "" {
		return session.DefaultSpecs(openingDuration)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sessions file: %w", err)
	}
	return ParseSessions(data, openingDuration)
}

// ParseSessions parses the YAML session layout
func ParseSessions(data []byte, openingDuration time.Duration) ([]session.Spec, error) {
	var file sessionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sessions file: %w", err)
	}
	if len(file.Sessions) == 0 {
		return nil, fmt.Errorf("%w: sessions file defines no sessions", ErrInvalidConfig)
	}

	specs := make([]session.Spec, 0, len(file.Sessions))
	for _, e := range file.Sessions {
		start, err := session.ParseTimeOfDay(e.OpeningStart)
		if err != nil {
			return nil, fmt.Errorf("session %s opening_start: %w", e.ID, err)
		}
		end, err := session.ParseTimeOfDay(e.SessionEnd)
		if err != nil {
			return nil, fmt.Errorf("session %s session_end: %w", e.ID, err)
		}
		loc, err := session.LoadLocation(e.Timezone)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", e.ID, err)
		}

		duration := openingDuration
		if e.OpeningDuration != "" {
			duration, err = time.ParseDuration(e.OpeningDuration)
			if err != nil {
				return nil, fmt.Errorf("%w: session %s opening_duration %q", ErrInvalidConfig, e.ID, e.OpeningDuration)
			}
		}

		name := e.Name
		if name == "" {
			name = e.ID
		}
		specs = append(specs, session.Spec{
			ID:                 session.ID(e.ID),
			Name:               name,
			OpeningStart:       start,
			OpeningDuration:    duration,
			SessionEnd:         end,
			Location:           loc,
			Previous:           session.ID(e.Previous),
			PreviousTradingDay: e.PreviousTradingDay,
		})
	}
	return specs, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Split by comma and trim spaces
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
