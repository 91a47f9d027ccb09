package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"matchpoint/internal/constants"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	MinEventsForPublic int

	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string
	PushAPIURL  string
	PushAPIKey  string
	SMSAPIURL   string
	SMSAPIKey   string
	SMSFrom     string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "matchpoint.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		MinEventsForPublic: getEnvInt("MIN_EVENTS_FOR_PUBLIC", constants.MinEventsForPublic),

		EmailAPIURL: getEnv("EMAIL_API_URL", ""),
		EmailAPIKey: getEnv("EMAIL_API_KEY", ""),
		EmailFrom:   getEnv("EMAIL_FROM", "noreply@matchpoint.app"),
		PushAPIURL:  getEnv("PUSH_API_URL", ""),
		PushAPIKey:  getEnv("PUSH_API_KEY", ""),
		SMSAPIURL:   getEnv("SMS_API_URL", ""),
		SMSAPIKey:   getEnv("SMS_API_KEY", ""),
		SMSFrom:     getEnv("SMS_FROM", ""),
	}

	if cfg.MinEventsForPublic < 1 {
		return nil, fmt.Errorf("MIN_EVENTS_FOR_PUBLIC must be at least 1")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("min_events_for_public", cfg.MinEventsForPublic).
		Bool("email_configured", cfg.EmailAPIKey != "").
		Bool("push_configured", cfg.PushAPIKey != "").
		Bool("sms_configured", cfg.SMSAPIKey != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
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

var Module = fx.Provide(Load)
