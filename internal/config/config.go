// Package config
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Config struct {
	Address        string `validate:"required"`
	AllowedOrigins []string
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=text json console"`
	LogFile        string
	LogMaxSizeMB   int `validate:"gt=0"`

	MonitorID      uuid.UUID
	SampleInterval time.Duration `validate:"gt=0"`
	CounterSource  string        `validate:"oneof=procfs gopsutil"`
	IdlePolicy     string        `validate:"oneof=tick cpuidle"`
	ProcRoot       string        `validate:"required"`
	SysRoot        string        `validate:"required"`
	ControlSecret  string

	RedisAddress      string
	RedisUsername     string
	RedisPassword     string
	RedisDB           int `validate:"gte=0"`
	AlertStream       string
	AlertStreamMaxLen int64 `validate:"gt=0"`
}

var validate = validator.New()

func Load() *Config {
	_ = godotenv.Load()

	// Logs
	logLevel := getEnv("LOG_LEVEL", "info")
	logFormat := getEnv("LOG_FORMAT", "text")
	logFile := os.Getenv("LOG_FILE")
	logMaxSize := getEnvInt("LOG_MAX_SIZE_MB", 100)

	// Control plane HTTP Address
	addr := getEnv("HTTP_ADDR", ":3100")

	// Allowed Origins for the alert stream
	var origins []string
	rawOrigins := os.Getenv("ALLOWED_ORIGINS")
	if rawOrigins != "" {
		parts := strings.SplitSeq(rawOrigins, ",")
		for o := range parts {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	// Monitor identity
	monitorID := uuid.New()
	if raw := os.Getenv("CPUMON_ID"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			monitorID = id
		}
	}

	// Sampling
	interval := 500 * time.Millisecond
	if raw := os.Getenv("CPUMON_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			interval = d
		}
	}

	// Redis alert log
	redisDB := getEnvInt("REDIS_DB", 0)
	streamMaxLen := int64(getEnvInt("CPUMON_ALERT_STREAM_MAXLEN", 10000))

	return &Config{
		LogLevel:     logLevel,
		LogFormat:    logFormat,
		LogFile:      logFile,
		LogMaxSizeMB: logMaxSize,

		Address:        addr,
		AllowedOrigins: origins,

		MonitorID:      monitorID,
		SampleInterval: interval,
		CounterSource:  getEnv("CPUMON_SOURCE", "procfs"),
		IdlePolicy:     getEnv("CPUMON_IDLE_POLICY", "tick"),
		ProcRoot:       getEnv("CPUMON_PROC_ROOT", "/proc"),
		SysRoot:        getEnv("CPUMON_SYS_ROOT", "/sys"),
		ControlSecret:  os.Getenv("CPUMON_CONTROL_SECRET"),

		RedisAddress:      os.Getenv("REDIS_ADDR"),
		RedisUsername:     os.Getenv("REDIS_USERNAME"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		AlertStream:       getEnv("CPUMON_ALERT_STREAM", "cpumon:alerts"),
		AlertStreamMaxLen: streamMaxLen,
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
