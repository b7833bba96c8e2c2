// Package config loads tokenbench configuration.
//
// Load order (later wins): built-in defaults, the optional TOML file
// (CONFIG_FILE or <work dir>/tokenbench.toml), then environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Manjussha/tokenbench/internal/platform"
)

// Config holds all runtime configuration for tokenbench.
type Config struct {
	Port    string
	WorkDir string
	DBPath  string

	BackendURL     string
	BackendTimeout time.Duration
	BackendRPM     int
	LocalFallback  bool

	MaxTextBytes    int64
	HistoryLimit    int
	ProjectRunLimit int
	DefaultEncoding string
	DefaultBudget   float64
	PricingFile     string

	AccessKey      string
	AllowedOrigins []string

	TelegramToken  string
	TelegramChatID int64
	WebhookURLs    []string

	HealthInterval string
	RetentionHours int
}

const (
	defaultBackendURL    = "http://localhost:5000"
	productionBackendURL = "http://token-counter-backend:5000"
	fileName             = "tokenbench.toml"
)

// Defaults returns a Config populated with built-in defaults only.
func Defaults() *Config {
	workDir := platform.DefaultWorkDir()
	return &Config{
		Port:            "8080",
		WorkDir:         workDir,
		DBPath:          filepath.Join(workDir, "tokenbench.db"),
		BackendURL:      defaultBackendURL,
		BackendTimeout:  60 * time.Second,
		MaxTextBytes:    10 * 1024 * 1024,
		HistoryLimit:    50,
		ProjectRunLimit: 100,
		DefaultEncoding: "cl100k_base",
		DefaultBudget:   50,
		AllowedOrigins:  []string{"*"},
		HealthInterval:  "@every 30s",
		RetentionHours:  0,
	}
}

// Load reads the optional config file and environment variables and returns a Config.
// A missing config file is not an error; an unreadable one is logged and skipped.
func Load() *Config {
	cfg := Defaults()
	if os.Getenv("APP_ENV") == "production" {
		cfg.BackendURL = productionBackendURL
	}

	if err := LoadFile(FilePath(cfg.WorkDir), cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config.Load: %v (continuing with defaults)", err)
	}

	applyEnv(cfg)
	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(cfg.BackendURL), "/")
	return cfg
}

// FilePath returns CONFIG_FILE, or tokenbench.toml inside workDir.
func FilePath(workDir string) string {
	return getEnv("CONFIG_FILE", filepath.Join(workDir, fileName))
}

// fileConfig mirrors the TOML file. Nil pointers mean "not set".
type fileConfig struct {
	Port            *string   `toml:"port"`
	DBPath          *string   `toml:"db_path"`
	BackendURL      *string   `toml:"backend_url"`
	BackendTimeout  *string   `toml:"backend_timeout"`
	BackendRPM      *int      `toml:"backend_rpm"`
	LocalFallback   *bool     `toml:"local_fallback"`
	MaxTextBytes    *int64    `toml:"max_text_bytes"`
	HistoryLimit    *int      `toml:"history_limit"`
	ProjectRunLimit *int      `toml:"project_run_limit"`
	DefaultEncoding *string   `toml:"default_encoding"`
	DefaultBudget   *float64  `toml:"default_budget"`
	PricingFile     *string   `toml:"pricing_file"`
	AllowedOrigins  []string  `toml:"allowed_origins"`
	WebhookURLs     []string  `toml:"webhook_urls"`
	HealthInterval  *string   `toml:"health_interval"`
	RetentionHours  *int      `toml:"retention_hours"`
	Telegram        *telegram `toml:"telegram"`
}

type telegram struct {
	Token  string `toml:"token"`
	ChatID int64  `toml:"chat_id"`
}

// LoadFile overlays values from a TOML file onto cfg.
// Returns an error wrapping os.ErrNotExist when the file is absent.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config.LoadFile: %w", err)
	}
	var file fileConfig
	if _, err := toml.Decode(string(data), &file); err != nil {
		return fmt.Errorf("config.LoadFile: decode %s: %w", path, err)
	}

	if file.Port != nil && *file.Port != "" {
		cfg.Port = *file.Port
	}
	if file.DBPath != nil && *file.DBPath != "" {
		cfg.DBPath = *file.DBPath
	}
	if file.BackendURL != nil && *file.BackendURL != "" {
		cfg.BackendURL = *file.BackendURL
	}
	if file.BackendTimeout != nil && *file.BackendTimeout != "" {
		d, err := time.ParseDuration(*file.BackendTimeout)
		if err != nil {
			return fmt.Errorf("config.LoadFile: backend_timeout: %w", err)
		}
		cfg.BackendTimeout = d
	}
	if file.BackendRPM != nil && *file.BackendRPM >= 0 {
		cfg.BackendRPM = *file.BackendRPM
	}
	if file.LocalFallback != nil {
		cfg.LocalFallback = *file.LocalFallback
	}
	if file.MaxTextBytes != nil && *file.MaxTextBytes > 0 {
		cfg.MaxTextBytes = *file.MaxTextBytes
	}
	if file.HistoryLimit != nil && *file.HistoryLimit > 0 {
		cfg.HistoryLimit = *file.HistoryLimit
	}
	if file.ProjectRunLimit != nil && *file.ProjectRunLimit > 0 {
		cfg.ProjectRunLimit = *file.ProjectRunLimit
	}
	if file.DefaultEncoding != nil && *file.DefaultEncoding != "" {
		cfg.DefaultEncoding = *file.DefaultEncoding
	}
	if file.DefaultBudget != nil && *file.DefaultBudget >= 0 {
		cfg.DefaultBudget = *file.DefaultBudget
	}
	if file.PricingFile != nil {
		cfg.PricingFile = *file.PricingFile
	}
	if len(file.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	if len(file.WebhookURLs) > 0 {
		cfg.WebhookURLs = file.WebhookURLs
	}
	if file.HealthInterval != nil && *file.HealthInterval != "" {
		cfg.HealthInterval = *file.HealthInterval
	}
	if file.RetentionHours != nil && *file.RetentionHours >= 0 {
		cfg.RetentionHours = *file.RetentionHours
	}
	if file.Telegram != nil {
		cfg.TelegramToken = file.Telegram.Token
		cfg.TelegramChatID = file.Telegram.ChatID
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.BackendURL = getEnv("BACKEND_URL", cfg.BackendURL)
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", cfg.BackendTimeout)
	cfg.BackendRPM = getEnvInt("BACKEND_RPM", cfg.BackendRPM)
	cfg.LocalFallback = getEnvBool("LOCAL_FALLBACK", cfg.LocalFallback)
	cfg.MaxTextBytes = int64(getEnvInt("MAX_TEXT_BYTES", int(cfg.MaxTextBytes)))
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", cfg.HistoryLimit)
	cfg.ProjectRunLimit = getEnvInt("PROJECT_RUN_LIMIT", cfg.ProjectRunLimit)
	cfg.DefaultEncoding = getEnv("DEFAULT_ENCODING", cfg.DefaultEncoding)
	cfg.DefaultBudget = getEnvFloat("DEFAULT_BUDGET", cfg.DefaultBudget)
	cfg.PricingFile = getEnv("PRICING_FILE", cfg.PricingFile)
	cfg.AccessKey = getEnv("ACCESS_KEY", cfg.AccessKey)
	cfg.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", cfg.TelegramToken)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = id
		}
	}
	cfg.WebhookURLs = getEnvList("WEBHOOK_URLS", cfg.WebhookURLs)
	cfg.HealthInterval = getEnv("HEALTH_INTERVAL", cfg.HealthInterval)
	cfg.RetentionHours = getEnvInt("RETENTION_HOURS", cfg.RetentionHours)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
