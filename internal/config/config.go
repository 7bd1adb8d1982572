package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Reasoning service (OpenAI-compatible chat completions API)
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Object store for meal images
	UploadDir     string
	UploadBaseURL string

	// Batch recompute interval for LifeScore snapshots (0 disables; defaults to daily)
	RecomputeInterval time.Duration

	// WhatsApp Cloud API credentials; SMS delivery falls back to console logging when unset
	WhatsAppToken         string
	WhatsAppPhoneNumberID string

	// DevMode enables stubbed collaborators and returns verification codes in responses
	DevMode bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              "8080",
		AccessTokenTTL:    24 * time.Hour,
		RefreshTokenTTL:   30 * 24 * time.Hour,
		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIModel:       "gpt-4",
		UploadDir:         "uploads",
		UploadBaseURL:     "/uploads",
		RecomputeInterval: 24 * time.Hour,
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.DatabaseURL = databaseURL

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = jwtSecret

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" && !cfg.DevMode {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required (or set DEV_MODE=true)")
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.OpenAIBaseURL = base
	}
	if m := os.Getenv("OPENAI_MODEL"); m != "" {
		cfg.OpenAIModel = m
	}

	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		cfg.UploadDir = dir
	}
	if base := os.Getenv("UPLOAD_BASE_URL"); base != "" {
		cfg.UploadBaseURL = base
	}

	if ttl := os.Getenv("ACCESS_TOKEN_TTL_HOURS"); ttl != "" {
		hours, err := strconv.Atoi(ttl)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid ACCESS_TOKEN_TTL_HOURS: %q", ttl)
		}
		cfg.AccessTokenTTL = time.Duration(hours) * time.Hour
	}
	if ttl := os.Getenv("REFRESH_TOKEN_TTL_DAYS"); ttl != "" {
		days, err := strconv.Atoi(ttl)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid REFRESH_TOKEN_TTL_DAYS: %q", ttl)
		}
		cfg.RefreshTokenTTL = time.Duration(days) * 24 * time.Hour
	}

	// 0 is an explicit opt-out of the recompute scheduler
	if iv := os.Getenv("RECOMPUTE_INTERVAL_HOURS"); iv != "" {
		hours, err := strconv.Atoi(iv)
		if err != nil || hours < 0 {
			return nil, fmt.Errorf("invalid RECOMPUTE_INTERVAL_HOURS: %q", iv)
		}
		cfg.RecomputeInterval = time.Duration(hours) * time.Hour
	}

	cfg.WhatsAppToken = os.Getenv("WHATSAPP_ACCESS_TOKEN")
	cfg.WhatsAppPhoneNumberID = os.Getenv("WHATSAPP_PHONE_NUMBER_ID")

	return cfg, nil
}
