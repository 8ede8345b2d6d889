package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without a bot token")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("BOT_TOKEN", "legacy-token")
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_KEY", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("CALLBACK_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "legacy-token" {
		t.Fatalf("BOT_TOKEN fallback failed: %q", cfg.BotToken)
	}
	if cfg.Production || cfg.UseHostedDatabase() {
		t.Fatalf("unexpected production/hosted defaults: %+v", cfg)
	}
	if cfg.DatabasePath != "./data/gmatbot.db" || cfg.Port != "3000" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CallbackSecret != "legacy-token" {
		t.Fatalf("callback secret must default to the bot token")
	}
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "Production")
	t.Setenv("DATABASE_URL", "postgres://bot@db/quiz")
	t.Setenv("DATABASE_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production || !cfg.UseHostedDatabase() {
		t.Fatalf("want production with hosted database: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "_GMATBOT_TEST_DOTENV"
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	os.Unsetenv(key)
	defer os.Unsetenv(key)

	t.Setenv("APP_ENV", "production")
	LoadDotEnv(path)
	if got := os.Getenv(key); got != "" {
		t.Fatalf(".env must be ignored in production, got %q", got)
	}

	t.Setenv("APP_ENV", "development")
	LoadDotEnv(path)
	if got := os.Getenv(key); got != "from-file" {
		t.Fatalf("want from-file, got %q", got)
	}

	LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
}
