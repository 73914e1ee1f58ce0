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

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Reminder  ReminderConfig
	Countdown CountdownConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// ReminderConfig holds reminder scheduling policy.
type ReminderConfig struct {
	DefaultLeadMinutes int
	TickIntervalSec    int
	StoreTimeoutMs     int
}

// CountdownConfig holds the per-card countdown refresh period.
type CountdownConfig struct {
	PeriodMs int
}

// MinLeadTime is the smallest lead time a reminder can be set with.
const MinLeadTime = time.Minute

// TickInterval returns the scheduler tick period.
func (c ReminderConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSec) * time.Second
}

// StoreTimeout bounds a single reminder store write.
func (c ReminderConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMs) * time.Millisecond
}

// Period returns the countdown refresh period.
func (c CountdownConfig) Period() time.Duration {
	return time.Duration(c.PeriodMs) * time.Millisecond
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Validate checks the scheduling settings. A tick longer than the smallest lead time could
// let a reminder's trigger slip past its session start between two ticks.
func (c *Config) Validate() error {
	if c.Reminder.DefaultLeadMinutes <= 0 {
		return errors.New("REMINDER_DEFAULT_LEAD_MINUTES must be positive")
	}
	if c.Reminder.TickIntervalSec <= 0 {
		return errors.New("REMINDER_TICK_INTERVAL_SEC must be positive")
	}
	if c.Reminder.TickInterval() > MinLeadTime {
		return fmt.Errorf("REMINDER_TICK_INTERVAL_SEC must be at most %d", int(MinLeadTime/time.Second))
	}
	if c.Reminder.StoreTimeoutMs <= 0 {
		return errors.New("REMINDER_STORE_TIMEOUT_MS must be positive")
	}
	if c.Countdown.PeriodMs <= 0 {
		return errors.New("COUNTDOWN_PERIOD_MS must be positive")
	}
	return nil
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "classroom"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", "classroom-recordings"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Reminder: ReminderConfig{
			DefaultLeadMinutes: getEnvInt("REMINDER_DEFAULT_LEAD_MINUTES", 15),
			TickIntervalSec:    getEnvInt("REMINDER_TICK_INTERVAL_SEC", 30),
			StoreTimeoutMs:     getEnvInt("REMINDER_STORE_TIMEOUT_MS", 2000),
		},
		Countdown: CountdownConfig{
			PeriodMs: getEnvInt("COUNTDOWN_PERIOD_MS", 1000),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
