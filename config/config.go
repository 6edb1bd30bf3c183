package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                string
	DatabasePath        string
	JWTSecret           string
	ClientURL           string
	GraphAPIBaseURL     string
	FacebookAppID       string
	FacebookAppSecret   string
	WebhookVerifyToken  string
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	ProfileCacheTTLMins int
}

func Load() *Config {
	godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		DatabasePath:        getEnv("DATABASE_PATH", "data/helpdesk.db"),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		ClientURL:           getEnv("CLIENT_URL", "http://localhost:3000"),
		GraphAPIBaseURL:     getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v19.0"),
		FacebookAppID:       getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:   getEnv("FACEBOOK_APP_SECRET", ""),
		WebhookVerifyToken:  getEnv("WEBHOOK_VERIFY_TOKEN", ""),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		ProfileCacheTTLMins: getEnvInt("PROFILE_CACHE_TTL_MINUTES", 60),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	if cfg.WebhookVerifyToken == "" {
		log.Fatal("WEBHOOK_VERIFY_TOKEN environment variable is required")
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
