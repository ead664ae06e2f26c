package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config параметры сервиса из окружения.
type Config struct {
	Port          string
	DBPath        string
	TaxRate       float64
	TokenTTL      time.Duration
	UploadDir     string
	AdminEmail    string
	AdminPassword string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:       getEnv("PORT", "9091"),
		DBPath:     getEnv("DB_PATH", "./boutique.db"),
		TaxRate:    getEnvFloat("TAX_RATE", 0.08),
		TokenTTL:   time.Duration(getEnvInt("TOKEN_TTL_HOURS", 72)) * time.Hour,
		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),
		AdminEmail: getEnv("ADMIN_EMAIL", ""),
		// пустой пароль означает: администратора при старте не сеять
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
	if cfg.TaxRate < 0 {
		slog.Warn("TAX_RATE is negative, falling back to 0", "value", cfg.TaxRate)
		cfg.TaxRate = 0
	}
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
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		slog.Warn("invalid float in environment, using default", "key", key, "value", v)
	}
	return fallback
}
