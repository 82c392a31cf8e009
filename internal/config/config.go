package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	HistoryDriverCSV      = "csv"
	HistoryDriverPostgres = "postgres"
)

type Config struct {
	HistoryDriver string
	HistoryFile   string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	SMTPHost       string
	SMTPPort       int
	MailFrom       string
	MailUsername   string
	MailPassword   string
	MailRecipients []string
	MailSubject    string

	TelegramToken    string
	TelegramChat     string
	TelegramThreadID *int

	FetchTimeout time.Duration
	HTTPPort     string
	CronSpec     string
	LogLevel     string
}

// Load reads the process environment, after merging an optional .env file.
// The mail password is not required here; it is only needed once there is
// something to send.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HistoryDriver:  strings.ToLower(envOrDefault("HISTORY_DRIVER", HistoryDriverCSV)),
		HistoryFile:    envOrDefault("HISTORY_FILE", "links.csv"),
		DBHost:         envOrDefault("DB_HOST", "localhost"),
		DBPort:         envOrDefault("DB_PORT", "5432"),
		DBUser:         envOrDefault("DB_USERNAME", "postgres"),
		DBPassword:     envOrDefault("DB_PASSWORD", "postgres"),
		DBName:         envOrDefault("DB_DATABASE", "regwatch"),
		DBSSLMode:      envOrDefault("DB_SSLMODE", "disable"),
		SMTPHost:       envOrDefault("SMTP_HOST", "smtp.gmail.com"),
		MailFrom:       os.Getenv("MAIL_FROM"),
		MailPassword:   envOrDefault("MAIL_PASSWORD", os.Getenv("APP_PW")),
		MailRecipients: splitList(os.Getenv("MAIL_RECIPIENTS")),
		MailSubject:    envOrDefault("MAIL_SUBJECT", "New Content"),
		TelegramToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChat:   os.Getenv("TELEGRAM_CHAT_ID"),
		HTTPPort:       envOrDefault("HTTP_PORT", "3000"),
		CronSpec:       envOrDefault("SCRAPE_CRON", "0 * * * *"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
	}
	cfg.MailUsername = envOrDefault("MAIL_USERNAME", cfg.MailFrom)

	port, err := envOrInt("SMTP_PORT", 587)
	if err != nil {
		return cfg, err
	}
	cfg.SMTPPort = port

	timeout, err := envOrDuration("FETCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return cfg, err
	}
	cfg.FetchTimeout = timeout

	threadID, err := envOrIntPtr("TELEGRAM_CHAT_THREAD_ID")
	if err != nil {
		return cfg, err
	}
	cfg.TelegramThreadID = threadID

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.HistoryDriver {
	case HistoryDriverCSV:
		if c.HistoryFile == "" {
			return errors.New("missing HISTORY_FILE")
		}
	case HistoryDriverPostgres:
		if c.DBHost == "" || c.DBUser == "" || c.DBName == "" {
			return errors.New("missing database configuration")
		}
	default:
		return fmt.Errorf("unknown HISTORY_DRIVER %q", c.HistoryDriver)
	}

	if c.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}
	if len(c.MailRecipients) > 0 && c.MailFrom == "" {
		return errors.New("MAIL_RECIPIENTS set without MAIL_FROM")
	}
	return nil
}

// TelegramEnabled reports whether the optional telegram channel is configured.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChat != ""
}

func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envOrIntPtr(key string) (*int, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &parsed, nil
}

func envOrDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
