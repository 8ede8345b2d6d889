package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/korjavin/gmatbot/models"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the sqlite store used for local runs
type DB struct {
	conn *sql.DB
}

// New opens the sqlite database at dbPath and initializes tables
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err = createTables(db); err != nil {
		return nil, err
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			question_number INTEGER NOT NULL,
			type TEXT NOT NULL,
			question TEXT NOT NULL,
			choices TEXT NOT NULL,
			answer INTEGER NOT NULL,
			explanation TEXT NOT NULL DEFAULT '{}',
			UNIQUE (type, question_number)
		)`,
		`CREATE TABLE IF NOT EXISTS user_answers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			user_answer INTEGER NOT NULL,
			is_correct BOOLEAN NOT NULL,
			started_at INTEGER NOT NULL,
			submitted_at INTEGER NOT NULL,
			answered_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_answers_user ON user_answers (user_id, question_id)`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			language TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertQuestion inserts q or replaces the question with the same subject and number.
// A known id imported under a new subject or number moves that question.
func (db *DB) UpsertQuestion(ctx context.Context, q models.Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return err
	}
	explanations, err := json.Marshal(explanationMap(q.Explanations))
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO questions (id, question_number, type, question, choices, answer, explanation)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, question_number) DO UPDATE SET
			question = excluded.question,
			choices = excluded.choices,
			answer = excluded.answer,
			explanation = excluded.explanation
		ON CONFLICT (id) DO UPDATE SET
			question_number = excluded.question_number,
			type = excluded.type,
			question = excluded.question,
			choices = excluded.choices,
			answer = excluded.answer,
			explanation = excluded.explanation`,
		q.ID, q.Number, string(q.Subject), q.Prompt, string(choices), q.Answer, string(explanations),
	)
	return err
}

const questionColumns = "id, question_number, type, question, choices, answer, explanation"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (models.Question, error) {
	var q models.Question
	var subject, choices, explanations string
	if err := row.Scan(&q.ID, &q.Number, &subject, &q.Prompt, &choices, &q.Answer, &explanations); err != nil {
		return q, err
	}
	q.Subject = models.Subject(subject)
	if err := json.Unmarshal([]byte(choices), &q.Choices); err != nil {
		return q, fmt.Errorf("decode choices of question %s: %w", q.ID, err)
	}
	var raw map[string]string
	if err := json.Unmarshal([]byte(explanations), &raw); err != nil {
		return q, fmt.Errorf("decode explanation of question %s: %w", q.ID, err)
	}
	q.Explanations = languageMap(raw)
	return q, nil
}

// QuestionsBySubject returns the subject's questions ordered by number
func (db *DB) QuestionsBySubject(ctx context.Context, subject models.Subject) ([]models.Question, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE type = ? ORDER BY question_number ASC",
		string(subject))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionByID returns the question with id, or nil when there is none
func (db *DB) QuestionByID(ctx context.Context, id string) (*models.Question, error) {
	q, err := scanQuestion(db.conn.QueryRowContext(ctx,
		"SELECT "+questionColumns+" FROM questions WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// InsertAnswer records a submission; AnsweredAt is set to the write time
func (db *DB) InsertAnswer(ctx context.Context, a models.AnswerSubmission) error {
	a.AnsweredAt = time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_answers (user_id, question_id, user_answer, is_correct, started_at, submitted_at, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.QuestionID, a.Choice, a.Correct,
		a.StartedAt.UnixMilli(), a.SubmittedAt.UnixMilli(), a.AnsweredAt.UnixMilli(),
	)
	return err
}

// subjectFilter joins submissions to their questions; an empty subject matches all
const subjectFilter = `
	FROM user_answers ua
	JOIN questions q ON q.id = ua.question_id
	WHERE ua.user_id = ? AND (? = '' OR q.type = ?)`

// AnsweredQuestionIDs returns the ids of questions the user has answered at least once
func (db *DB) AnsweredQuestionIDs(ctx context.Context, userID int64, subject models.Subject) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT DISTINCT ua.question_id"+subjectFilter,
		userID, string(subject), string(subject))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Stats counts the user's submissions and the correct ones
func (db *DB) Stats(ctx context.Context, userID int64, subject models.Subject) (models.Stats, error) {
	var stats models.Stats
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN ua.is_correct THEN 1 ELSE 0 END), 0)"+subjectFilter,
		userID, string(subject), string(subject),
	).Scan(&stats.Total, &stats.Correct)
	return stats, err
}

// WrongQuestionNumbers returns the numbers of questions answered incorrectly,
// each once, in the order of the first wrong submission
func (db *DB) WrongQuestionNumbers(ctx context.Context, userID int64, subject models.Subject) ([]int, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT q.question_number"+subjectFilter+" AND ua.is_correct = 0 GROUP BY q.id ORDER BY MIN(ua.id)",
		userID, string(subject), string(subject))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// Language returns the stored language of the user, empty when unset
func (db *DB) Language(ctx context.Context, userID int64) (models.Language, error) {
	var lang string
	err := db.conn.QueryRowContext(ctx, "SELECT language FROM users WHERE user_id = ?", userID).Scan(&lang)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return models.Language(lang), err
}

// SetLanguage upserts the user's language
func (db *DB) SetLanguage(ctx context.Context, userID int64, lang models.Language) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (user_id, language) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET language = excluded.language`,
		userID, string(lang))
	return err
}

// Subject returns the stored subject of the user, empty when unset
func (db *DB) Subject(ctx context.Context, userID int64) (models.Subject, error) {
	var subject string
	err := db.conn.QueryRowContext(ctx, "SELECT subject FROM users WHERE user_id = ?", userID).Scan(&subject)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return models.Subject(subject), err
}

// SetSubject upserts the user's subject
func (db *DB) SetSubject(ctx context.Context, userID int64, subject models.Subject) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (user_id, subject) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET subject = excluded.subject`,
		userID, string(subject))
	return err
}

func explanationMap(in map[models.Language]string) map[string]string {
	out := make(map[string]string, len(in))
	for lang, text := range in {
		if text != "" {
			out[string(lang)] = text
		}
	}
	return out
}

func languageMap(in map[string]string) map[models.Language]string {
	out := make(map[models.Language]string, len(in))
	for lang, text := range in {
		out[models.Language(lang)] = text
	}
	return out
}
