package database

import (
	"context"

	"github.com/korjavin/gmatbot/models"
)

// Store is implemented by both the sqlite and the Postgres backends
type Store interface {
	UpsertQuestion(ctx context.Context, q models.Question) error
	QuestionsBySubject(ctx context.Context, subject models.Subject) ([]models.Question, error)
	QuestionByID(ctx context.Context, id string) (*models.Question, error)

	InsertAnswer(ctx context.Context, a models.AnswerSubmission) error
	AnsweredQuestionIDs(ctx context.Context, userID int64, subject models.Subject) ([]string, error)
	Stats(ctx context.Context, userID int64, subject models.Subject) (models.Stats, error)
	WrongQuestionNumbers(ctx context.Context, userID int64, subject models.Subject) ([]int, error)

	Language(ctx context.Context, userID int64) (models.Language, error)
	SetLanguage(ctx context.Context, userID int64, lang models.Language) error
	Subject(ctx context.Context, userID int64) (models.Subject, error)
	SetSubject(ctx context.Context, userID int64, subject models.Subject) error

	Close() error
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*PostgresDB)(nil)
)
