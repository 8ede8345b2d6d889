package config

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken       string
	Production     bool
	DatabaseURL    string
	DatabaseKey    string
	DatabasePath   string
	Port           string
	WebhookURL     string
	WebhookSecret  string
	CallbackSecret string
	DeepseekAPIKey string
	Debug          bool
}

// LoadDotEnv loads .env files outside production. A missing file is not an error.
func LoadDotEnv(files ...string) {
	if IsProduction() {
		return
	}
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Error loading .env: %v", err)
		}
		return
	}
	log.Println("Loaded .env for local development")
}

// IsProduction reports whether APP_ENV (or NODE_ENV) is "production"
func IsProduction() bool {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	return strings.EqualFold(env, "production")
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	botToken := os.Getenv("TELEGRAM_TOKEN")
	if botToken == "" {
		botToken = os.Getenv("BOT_TOKEN")
	}
	if botToken == "" {
		return nil, errors.New("TELEGRAM_TOKEN environment variable is required")
	}

	cfg := &Config{
		BotToken:       botToken,
		Production:     IsProduction(),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DatabaseKey:    os.Getenv("DATABASE_KEY"),
		DatabasePath:   getEnv("DB_PATH", "./data/gmatbot.db"),
		Port:           getEnv("PORT", "3000"),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		CallbackSecret: getEnv("CALLBACK_SECRET", botToken),
		DeepseekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		Debug:          os.Getenv("DEBUG") == "true",
	}

	if cfg.DatabaseURL == "" || cfg.DatabaseKey == "" {
		log.Printf("WARNING: DATABASE_URL or DATABASE_KEY is empty, check your environment")
	}

	return cfg, nil
}

// UseHostedDatabase reports whether the hosted Postgres store is configured
func (c *Config) UseHostedDatabase() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
