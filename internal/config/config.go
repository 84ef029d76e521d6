// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the client.
type Config struct {
	API     APIConfig
	Web     WebConfig
	Logging LoggingConfig
	CORS    CORSConfig
	DataDir string
	// StoreKey enables at-rest encryption of the local store when set.
	StoreKey string
}

// APIConfig holds settings for the external platform API.
type APIConfig struct {
	BaseURL string
	// Timeout applies to JSON endpoints.
	Timeout time.Duration
	// FileTimeout applies to binary content fetches, which may carry
	// large files.
	FileTimeout time.Duration
}

// WebConfig holds settings for the local web frontend.
type WebConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	godotenv.Load()

	cfg := &Config{}

	// API configuration
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	cfg.API.BaseURL = strings.TrimRight(baseURL, "/")

	timeoutStr := os.Getenv("HTTP_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "15s"
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.API.Timeout = timeout

	// Binary fetches get a generous timeout to accommodate large files
	fileTimeoutStr := os.Getenv("FILE_TIMEOUT")
	if fileTimeoutStr == "" {
		fileTimeoutStr = "60s"
	}
	fileTimeout, err := time.ParseDuration(fileTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FILE_TIMEOUT: %w", err)
	}
	cfg.API.FileTimeout = fileTimeout

	// Web frontend configuration
	webPortStr := os.Getenv("WEB_PORT")
	if webPortStr == "" {
		webPortStr = "3000" // default port
	}
	webPort, err := strconv.Atoi(webPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WEB_PORT: %w", err)
	}
	cfg.Web.Port = webPort

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		// Default to allow all origins if not specified (for development)
		cfg.CORS.AllowedOrigins = []string{"*"}
	} else {
		// Parse comma-separated origins
		origins := strings.Split(corsOrigins, ",")
		cfg.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
			}
		}
		if len(cfg.CORS.AllowedOrigins) == 0 {
			cfg.CORS.AllowedOrigins = []string{"*"}
		}
	}

	// Local data directory for tokens, progress and temporary content
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user config dir: %w", err)
		}
		dataDir = filepath.Join(configDir, "englishstudent")
	}
	cfg.DataDir = dataDir

	// Optional at-rest encryption key for the local store
	cfg.StoreKey = os.Getenv("STORE_KEY")

	return cfg, nil
}

// StorePath returns the path of the local key-value store file.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "store.json")
}
