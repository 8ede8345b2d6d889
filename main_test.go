package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/korjavin/gmatbot/database"
	"github.com/korjavin/gmatbot/models"
)

const bank = `[
  {"id": "cr-1", "number": 1, "subject": "cr", "question": "First?", "choices": ["a", "b"], "answer": "B"},
  {"number": 2, "subject": "cr", "question": "Second?", "choices": ["a", "b", "c"], "answer": 3}
]`

func importEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "quiz.db")
	t.Setenv("APP_ENV", "production")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("DB_PATH", dbPath)
	return dbPath
}

func TestRunImport(t *testing.T) {
	dbPath := importEnv(t)
	path := filepath.Join(t.TempDir(), "bank.json")
	if err := os.WriteFile(path, []byte(bank), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := run(options{importFile: path}); err != nil {
		t.Fatalf("run: %v", err)
	}

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	qs, err := db.QuestionsBySubject(context.Background(), models.SubjectCR)
	if err != nil || len(qs) != 2 || qs[0].ID != "cr-1" {
		t.Fatalf("want 2 imported questions, got %+v %v", qs, err)
	}
}

func TestRunImportReturnsErrors(t *testing.T) {
	importEnv(t)
	path := filepath.Join(t.TempDir(), "bank.json")
	if err := os.WriteFile(path, []byte(bank), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := run(options{importFile: filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatalf("expected error for a missing bank")
	}
	if err := run(options{importFile: path, explain: true}); err == nil {
		t.Fatalf("expected error for --explain without an API key")
	}
}
