package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// Owner all records are scoped to (single-user deployment)
	OwnerID string

	// Notification cache
	NotifyCachePath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Drive receipt storage
	DriveFolderID        string
	DriveCredentialsFile string
	DriveCredentialsJSON string

	// Worker
	EnsureInterval time.Duration
	NotifyInterval time.Duration
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath:    getEnv("SQLITE_DB_PATH", "./data/caixa.db"),
		OwnerID:         getEnv("CAIXA_OWNER_ID", ""),
		NotifyCachePath: getEnv("NOTIFY_CACHE_PATH", "./data/notifications.json"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "caixa"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		DriveFolderID:        getEnv("DRIVE_FOLDER_ID", ""),
		DriveCredentialsFile: getEnv("DRIVE_CREDENTIALS_FILE", ""),
		DriveCredentialsJSON: getEnv("DRIVE_CREDENTIALS_JSON", ""),

		EnsureInterval: getEnvDuration("ENSURE_INTERVAL", 6*time.Hour),
		NotifyInterval: getEnvDuration("NOTIFY_INTERVAL", 30*time.Minute),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.OwnerID == "" {
		errors = append(errors, "CAIXA_OWNER_ID must be set: all records are scoped to an owner")
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.NotifyCachePath == "" {
		errors = append(errors, "notification cache path cannot be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Drive is optional; when a folder is configured credentials must come
	// from either a file or inline JSON.
	if c.DriveFolderID != "" {
		if c.DriveCredentialsFile == "" && c.DriveCredentialsJSON == "" {
			errors = append(errors, "either DRIVE_CREDENTIALS_FILE or DRIVE_CREDENTIALS_JSON must be provided when DRIVE_FOLDER_ID is set")
		}
		if c.DriveCredentialsFile != "" {
			if _, err := os.Stat(c.DriveCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Drive credentials file does not exist: %s", c.DriveCredentialsFile))
			}
		}
	}

	if c.EnsureInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid ensure interval %v: must be at least 1 minute", c.EnsureInterval))
	}
	if c.NotifyInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid notify interval %v: must be at least 1 minute", c.NotifyInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
