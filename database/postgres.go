package database

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/korjavin/gmatbot/models"
)

type questionRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Number      int            `gorm:"column:question_number;not null;uniqueIndex:idx_questions_type_number"`
	Type        string         `gorm:"column:type;not null;uniqueIndex:idx_questions_type_number"`
	Question    string         `gorm:"column:question;not null"`
	Choices     datatypes.JSON `gorm:"column:choices;type:jsonb;not null"`
	Answer      int            `gorm:"column:answer;not null"`
	Explanation datatypes.JSON `gorm:"column:explanation;type:jsonb"`
}

func (questionRecord) TableName() string { return "questions" }

type answerRecord struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      int64     `gorm:"column:user_id;not null;index"`
	QuestionID  uuid.UUID `gorm:"column:question_id;type:uuid;not null;index"`
	UserAnswer  int       `gorm:"column:user_answer;not null"`
	IsCorrect   bool      `gorm:"column:is_correct;not null"`
	StartedAt   time.Time `gorm:"column:started_at;not null"`
	SubmittedAt time.Time `gorm:"column:submitted_at;not null"`
	AnsweredAt  time.Time `gorm:"column:answered_at;not null;autoCreateTime"`
}

func (answerRecord) TableName() string { return "user_answers" }

type userRecord struct {
	UserID   int64  `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	Language string `gorm:"column:language;not null;default:''"`
	Subject  string `gorm:"column:subject;not null;default:''"`
}

func (userRecord) TableName() string { return "users" }

// PostgresDB is the hosted store
type PostgresDB struct {
	db *gorm.DB
}

// PostgresDSN combines the database endpoint with the access key used as password.
// Both URL ("postgres://user@host/db") and key=value DSNs are accepted.
func PostgresDSN(endpoint, key string) (string, error) {
	if key == "" {
		return endpoint, nil
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("parse database url: %w", err)
		}
		username := "postgres"
		if u.User != nil && u.User.Username() != "" {
			username = u.User.Username()
		}
		u.User = url.UserPassword(username, key)
		return u.String(), nil
	}
	return strings.TrimSpace(endpoint) + " password=" + key, nil
}

// NewPostgres connects to dsn and migrates the schema
func NewPostgres(dsn string) (*PostgresDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&questionRecord{}, &answerRecord{}, &userRecord{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &PostgresDB{db: db}, nil
}

// Close closes the underlying connection pool
func (p *PostgresDB) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(q models.Question) (questionRecord, error) {
	id, err := uuid.Parse(q.ID)
	if err != nil {
		return questionRecord{}, fmt.Errorf("question id %q: %w", q.ID, err)
	}
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return questionRecord{}, err
	}
	explanations, err := json.Marshal(explanationMap(q.Explanations))
	if err != nil {
		return questionRecord{}, err
	}
	return questionRecord{
		ID:          id,
		Number:      q.Number,
		Type:        string(q.Subject),
		Question:    q.Prompt,
		Choices:     datatypes.JSON(choices),
		Answer:      q.Answer,
		Explanation: datatypes.JSON(explanations),
	}, nil
}

func fromRecord(rec questionRecord) (models.Question, error) {
	q := models.Question{
		ID:      rec.ID.String(),
		Number:  rec.Number,
		Subject: models.Subject(rec.Type),
		Prompt:  rec.Question,
		Answer:  rec.Answer,
	}
	if err := json.Unmarshal(rec.Choices, &q.Choices); err != nil {
		return q, fmt.Errorf("decode choices of question %s: %w", q.ID, err)
	}
	var raw map[string]string
	if len(rec.Explanation) > 0 {
		if err := json.Unmarshal(rec.Explanation, &raw); err != nil {
			return q, fmt.Errorf("decode explanation of question %s: %w", q.ID, err)
		}
	}
	q.Explanations = languageMap(raw)
	return q, nil
}

// UpsertQuestion inserts q or replaces the question with the same subject and number.
// A known id imported under a new subject or number moves that question.
func (p *PostgresDB) UpsertQuestion(ctx context.Context, q models.Question) error {
	rec, err := toRecord(q)
	if err != nil {
		return err
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&questionRecord{}).Where("id = ?", rec.ID).Updates(map[string]any{
			"question_number": rec.Number,
			"type":            rec.Type,
			"question":        rec.Question,
			"choices":         rec.Choices,
			"answer":          rec.Answer,
			"explanation":     rec.Explanation,
		})
		if res.Error != nil || res.RowsAffected > 0 {
			return res.Error
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}, {Name: "question_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"question", "choices", "answer", "explanation"}),
		}).Create(&rec).Error
	})
}

// QuestionsBySubject returns the subject's questions ordered by number
func (p *PostgresDB) QuestionsBySubject(ctx context.Context, subject models.Subject) ([]models.Question, error) {
	var recs []questionRecord
	if err := p.db.WithContext(ctx).Where("type = ?", string(subject)).Order("question_number ASC").Find(&recs).Error; err != nil {
		return nil, err
	}
	questions := make([]models.Question, 0, len(recs))
	for _, rec := range recs {
		q, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// QuestionByID returns the question with id, or nil when there is none
func (p *PostgresDB) QuestionByID(ctx context.Context, id string) (*models.Question, error) {
	qid, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}
	var recs []questionRecord
	if err := p.db.WithContext(ctx).Where("id = ?", qid).Limit(1).Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	q, err := fromRecord(recs[0])
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// InsertAnswer records a submission
func (p *PostgresDB) InsertAnswer(ctx context.Context, a models.AnswerSubmission) error {
	qid, err := uuid.Parse(a.QuestionID)
	if err != nil {
		return fmt.Errorf("question id %q: %w", a.QuestionID, err)
	}
	return p.db.WithContext(ctx).Create(&answerRecord{
		UserID:      a.UserID,
		QuestionID:  qid,
		UserAnswer:  a.Choice,
		IsCorrect:   a.Correct,
		StartedAt:   a.StartedAt,
		SubmittedAt: a.SubmittedAt,
	}).Error
}

// answers scopes a query to the user's submissions joined to their questions
func (p *PostgresDB) answers(ctx context.Context, userID int64, subject models.Subject) *gorm.DB {
	tx := p.db.WithContext(ctx).Model(&answerRecord{}).
		Joins("JOIN questions ON questions.id = user_answers.question_id").
		Where("user_answers.user_id = ?", userID)
	if subject != "" {
		tx = tx.Where("questions.type = ?", string(subject))
	}
	return tx
}

// AnsweredQuestionIDs returns the ids of questions the user has answered at least once
func (p *PostgresDB) AnsweredQuestionIDs(ctx context.Context, userID int64, subject models.Subject) ([]string, error) {
	var ids []uuid.UUID
	if err := p.answers(ctx, userID, subject).Distinct().Pluck("user_answers.question_id", &ids).Error; err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out, nil
}

// Stats counts the user's submissions and the correct ones
func (p *PostgresDB) Stats(ctx context.Context, userID int64, subject models.Subject) (models.Stats, error) {
	var row struct {
		Total   int
		Correct int
	}
	err := p.answers(ctx, userID, subject).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN user_answers.is_correct THEN 1 ELSE 0 END), 0) AS correct").
		Scan(&row).Error
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{Total: row.Total, Correct: row.Correct}, nil
}

// WrongQuestionNumbers returns the numbers of questions answered incorrectly,
// each once, in the order of the first wrong submission
func (p *PostgresDB) WrongQuestionNumbers(ctx context.Context, userID int64, subject models.Subject) ([]int, error) {
	var numbers []int
	err := p.answers(ctx, userID, subject).
		Where("user_answers.is_correct = ?", false).
		Select("questions.question_number").
		Group("questions.id, questions.question_number").
		Order("MIN(user_answers.id)").
		Scan(&numbers).Error
	return numbers, err
}

func (p *PostgresDB) user(ctx context.Context, userID int64) (*userRecord, error) {
	var recs []userRecord
	if err := p.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&recs).Error; err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (p *PostgresDB) upsertUser(ctx context.Context, rec userRecord, column string) error {
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{column}),
	}).Create(&rec).Error
}

// Language returns the stored language of the user, empty when unset
func (p *PostgresDB) Language(ctx context.Context, userID int64) (models.Language, error) {
	rec, err := p.user(ctx, userID)
	if err != nil || rec == nil {
		return "", err
	}
	return models.Language(rec.Language), nil
}

// SetLanguage upserts the user's language
func (p *PostgresDB) SetLanguage(ctx context.Context, userID int64, lang models.Language) error {
	return p.upsertUser(ctx, userRecord{UserID: userID, Language: string(lang)}, "language")
}

// Subject returns the stored subject of the user, empty when unset
func (p *PostgresDB) Subject(ctx context.Context, userID int64) (models.Subject, error) {
	rec, err := p.user(ctx, userID)
	if err != nil || rec == nil {
		return "", err
	}
	return models.Subject(rec.Subject), nil
}

// SetSubject upserts the user's subject
func (p *PostgresDB) SetSubject(ctx context.Context, userID int64, subject models.Subject) error {
	return p.upsertUser(ctx, userRecord{UserID: userID, Subject: string(subject)}, "subject")
}
