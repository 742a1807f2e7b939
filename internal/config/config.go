package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Storage
	DataBackend        string
	SQLiteDBPath       string
	RetryAttempts      int
	RetryDelay         time.Duration
	ReportCacheTTL     time.Duration
	ReportCacheEntries int

	// Ledger
	AbsorbRemainder bool

	// AMQP; an empty URL means snapshots are exported in-process
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Snapshot sinks
	SnapshotXLSXPath         string
	SnapshotInterval         time.Duration
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// PDF report branding
	ReportOfficeName string
	ReportLogoPath   string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:        getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath:       getEnv("SQLITE_DB_PATH", "./data/honorarios.db"),
		RetryAttempts:      getEnvInt("STORAGE_RETRY_ATTEMPTS", 5),
		RetryDelay:         getEnvDuration("STORAGE_RETRY_DELAY", 200*time.Millisecond),
		ReportCacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		ReportCacheEntries: getEnvInt("CACHE_MAX_ENTRIES", 64),

		AbsorbRemainder: getEnvBool("LEDGER_ABSORB_REMAINDER", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "honorarios"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_requests"),

		SnapshotXLSXPath:         getEnv("SNAPSHOT_XLSX_PATH", "./data/backup_dados.xlsx"),
		SnapshotInterval:         getEnvDuration("SNAPSHOT_INTERVAL", time.Hour),
		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),

		ReportOfficeName: getEnv("REPORT_OFFICE_NAME", "Escritório de Advocacia"),
		ReportLogoPath:   getEnv("REPORT_LOGO_PATH", ""),
	}
}

// AMQPEnabled reports whether snapshot requests go through the broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// SheetsEnabled reports whether the Google Sheets mirror is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate returns every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	valid := false
	for _, b := range validBackends {
		if c.DataBackend == b {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.RetryAttempts < 1 || c.RetryAttempts > 50 {
		errs = append(errs, fmt.Sprintf("invalid retry attempts %d: must be between 1 and 50", c.RetryAttempts))
	}
	if c.RetryDelay < 0 || c.RetryDelay > 10*time.Second {
		errs = append(errs, fmt.Sprintf("invalid retry delay %v: must be between 0 and 10s", c.RetryDelay))
	}
	if c.ReportCacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be positive", c.ReportCacheTTL))
	}
	if c.ReportCacheEntries < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at least 1", c.ReportCacheEntries))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SnapshotXLSXPath == "" {
		errs = append(errs, "snapshot xlsx path cannot be empty")
	}
	if c.SnapshotInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid snapshot interval %v: must be at least 1 minute", c.SnapshotInterval))
	}

	if c.SheetsEnabled() && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errs = append(errs, "GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE is required when GOOGLE_SPREADSHEET_ID is set")
	}
	if c.GoogleServiceAccountFile != "" && c.SheetsEnabled() {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.ReportLogoPath != "" {
		if _, err := os.Stat(c.ReportLogoPath); err != nil {
			errs = append(errs, fmt.Sprintf("report logo not readable: %s", c.ReportLogoPath))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
