// Package config provides application configuration loaded from environment variables.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/diewo77/go-devis/internal/db"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Storage db.Config
	AI      AIConfig
	App     AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AIConfig points at the text-generation backend.
type AIConfig struct {
	BaseURL    string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev            bool
	Lang           string
	LogLevel       string
	DesktopNotify  bool
	CompanyName    string
	CompanyTagline string
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local use.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Storage: db.Config{
			Driver:     getEnv("STORAGE_DRIVER", db.DriverSQLite),
			Dir:        getEnv("STORAGE_DIR", "./data"),
			Name:       getEnv("STORAGE_DB_NAME", "LDRQuotesDB"),
			Migrations: getEnvBool("MIGRATIONS", true),
			Debug:      getEnvBool("DB_DEBUG", false),
		},
		AI: AIConfig{
			BaseURL:    getEnv("AI_BASE_URL", "http://localhost:5000"),
			Timeout:    getEnvDuration("AI_TIMEOUT", 30*time.Second),
			Attempts:   getEnvInt("AI_ATTEMPTS", 3),
			RetryDelay: getEnvDuration("AI_RETRY_DELAY", time.Second),
		},
		App: AppConfig{
			Dev:            getEnvBool("DEV", false),
			Lang:           getEnv("APP_LANG", "fr"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			DesktopNotify:  getEnvBool("DESKTOP_NOTIFY", false),
			CompanyName:    getEnv("COMPANY_NAME", "Les Domaines Rares"),
			CompanyTagline: getEnv("COMPANY_TAGLINE", "Événements d'Exception"),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

// getEnvDuration accepts Go durations ("30s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
