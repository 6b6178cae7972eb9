// Package config loads settings for the analysis server and CLI from
// environment variables, with defaults, and validates them on startup.
// Rule thresholds may additionally come from a YAML file named by RULES_FILE.
package config

import (
	"strconv"
	"time"

	"github.com/JonMunkholm/trutrend/internal/rules"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Detection DetectionConfig
	Rules     RulesConfig

	// resolved is Rules with the RULES_FILE overlay applied; set by Load.
	resolved *rules.Config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the chi Timeout middleware bound (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds result store settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps results in memory.
	// Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates the results table at startup (default: true)
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"true"`
}

// UploadConfig bounds analysis requests.
type UploadConfig struct {
	// MaxFileSize is the largest accepted export in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the number of analyses allowed to run at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a free slot (default: 10s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"10s"`

	// Timeout bounds a single analysis including storage (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the /api routes with the X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DetectionConfig tunes format detection and ingestion diagnostics.
type DetectionConfig struct {
	MatchThreshold      float64 `env:"DETECT_MATCH_THRESHOLD" default:"0.5"`
	MaxHeaderSearchRows int     `env:"DETECT_MAX_HEADER_ROWS" default:"20"`

	// SampleLimit caps the row problems kept in each ingestion report.
	SampleLimit int `env:"REPORT_SAMPLE_LIMIT" default:"20"`
}

// RulesConfig holds the clinical rule thresholds.
type RulesConfig struct {
	// File is an optional YAML rule profile applied on top of these values.
	File string `env:"RULES_FILE"`

	PostprandialWindow       time.Duration `env:"RULE_POSTPRANDIAL_WINDOW" default:"120m"`
	HyperglycemiaThreshold   float64       `env:"RULE_HYPERGLYCEMIA_THRESHOLD" default:"180"`
	MistimedGlucoseThreshold float64       `env:"RULE_MISTIMED_GLUCOSE_THRESHOLD" default:"160"`
	BolusDelayThreshold      time.Duration `env:"RULE_BOLUS_DELAY_THRESHOLD" default:"10m"`
	BolusLookback            time.Duration `env:"RULE_BOLUS_LOOKBACK" default:"10m"`
	BolusLookahead           time.Duration `env:"RULE_BOLUS_LOOKAHEAD" default:"60m"`

	CarbBinWidth        float64 `env:"RULE_CARB_BIN_WIDTH" default:"20"`
	MinMealsPerBin      int     `env:"RULE_MIN_MEALS_PER_BIN" default:"3"`
	MinProblematicMeals int     `env:"RULE_MIN_PROBLEMATIC_MEALS" default:"3"`

	PostprandialHigh   float64 `env:"RULE_POSTPRANDIAL_SEVERITY_HIGH" default:"0.5"`
	PostprandialMedium float64 `env:"RULE_POSTPRANDIAL_SEVERITY_MEDIUM" default:"0.3"`
	MistimedHigh       float64 `env:"RULE_MISTIMED_SEVERITY_HIGH" default:"0.3"`
	MistimedMedium     float64 `env:"RULE_MISTIMED_SEVERITY_MEDIUM" default:"0.2"`
	CarbRatioHigh      int     `env:"RULE_CARB_RATIO_SEVERITY_HIGH" default:"5"`
	CarbRatioMedium    int     `env:"RULE_CARB_RATIO_SEVERITY_MEDIUM" default:"3"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
