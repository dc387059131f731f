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

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Backend selection: "sqlite" or "memory"
	DataBackend string

	// AMQP (enrichment job queue; empty URL disables the queue and the
	// scan endpoint runs the pipeline in-process)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Gemini text generation. ExtractModel parses OCR text into a receipt,
	// RefineModel maps its category guess onto the user's taxonomy.
	GeminiAPIKey       string
	GeminiExtractModel string
	GeminiRefineModel  string

	// Cloud Vision OCR
	VisionAPIKey string

	// Image spool directory for queued enrichment jobs
	SpoolDir string

	// Monthly report email
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	ReportFrom     string
	ReportTo       string
	ReportInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/parsimonious.db"),
		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "parsimonious"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "enrich_receipts"),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiExtractModel: getEnv("GEMINI_EXTRACT_MODEL", "gemini-2.5-flash"),
		GeminiRefineModel:  getEnv("GEMINI_REFINE_MODEL", "gemini-2.5-flash-lite"),

		VisionAPIKey: getEnv("VISION_API_KEY", ""),

		SpoolDir: getEnv("SPOOL_DIR", "./data/spool"),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		ReportFrom:     getEnv("REPORT_FROM", ""),
		ReportTo:       getEnv("REPORT_TO", ""),
		ReportInterval: getEnvDuration("REPORT_INTERVAL", 12*time.Hour),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite memory]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.SpoolDir == "" {
			errs = append(errs, "spool directory cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReportInterval < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid report interval %v: must be at least 1 minute", c.ReportInterval))
	}

	if c.ReportTo != "" {
		if c.SMTPHost == "" {
			errs = append(errs, "SMTP host is required when REPORT_TO is set")
		}
		if c.ReportFrom == "" {
			errs = append(errs, "REPORT_FROM is required when REPORT_TO is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// EnrichmentEnabled reports whether both external services needed by the
// enrichment pipeline are configured.
func (c *Config) EnrichmentEnabled() bool {
	return c.GeminiAPIKey != "" && c.VisionAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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
