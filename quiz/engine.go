// Package quiz serves questions, scores submitted answers and reports statistics.
package quiz

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/korjavin/gmatbot/i18n"
	"github.com/korjavin/gmatbot/models"
	"github.com/korjavin/gmatbot/session"
)

// QuestionStore is the read side of the question bank
type QuestionStore interface {
	// QuestionsBySubject returns the subject's questions ordered by number
	QuestionsBySubject(ctx context.Context, subject models.Subject) ([]models.Question, error)
	// QuestionByID returns nil, nil when no question has the id
	QuestionByID(ctx context.Context, id string) (*models.Question, error)
}

// AnswerStore holds submissions and aggregates them. An empty subject means all subjects.
type AnswerStore interface {
	AnsweredQuestionIDs(ctx context.Context, userID int64, subject models.Subject) ([]string, error)
	InsertAnswer(ctx context.Context, answer models.AnswerSubmission) error
	Stats(ctx context.Context, userID int64, subject models.Subject) (models.Stats, error)
	WrongQuestionNumbers(ctx context.Context, userID int64, subject models.Subject) ([]int, error)
}

// Button is one inline choice button
type Button struct {
	Label string
	Data  string
}

// Served is a rendered question ready to send. Text is MarkdownV2.
type Served struct {
	Question models.Question
	IssuedAt time.Time
	Text     string
	Buttons  []Button
}

// Scored is the outcome of an answer submission. Text is plain text.
type Scored struct {
	Question models.Question
	Choice   int
	Correct  bool
	Elapsed  time.Duration
	Stats    models.Stats
	Text     string
}

// Engine implements the serve -> answer -> score flow
type Engine struct {
	questions QuestionStore
	answers   AnswerStore
	sessions  *session.Tracker
	codec     *Codec
	now       func() time.Time
}

// NewEngine creates an engine
func NewEngine(questions QuestionStore, answers AnswerStore, sessions *session.Tracker, codec *Codec) *Engine {
	return &Engine{
		questions: questions,
		answers:   answers,
		sessions:  sessions,
		codec:     codec,
		now:       time.Now,
	}
}

// ServeNext picks a question for userID in subject and renders it in lang.
// With a non-nil number the question with that number is served even if it
// was answered before; otherwise the first unanswered question is served.
func (e *Engine) ServeNext(ctx context.Context, userID int64, subject models.Subject, number *int, lang models.Language) (*Served, error) {
	questions, err := e.questions.QuestionsBySubject(ctx, subject)
	if err != nil {
		log.Printf("Error loading %s questions for user %d: %v", subject, userID, err)
		questions = nil
	}
	log.Printf("Selecting from %d %s questions for user %d", len(questions), subject, userID)

	var question *models.Question
	if number != nil {
		for i := range questions {
			if questions[i].Number == *number {
				question = &questions[i]
				break
			}
		}
		if question == nil {
			return nil, &NotFoundError{Subject: subject, Number: *number}
		}
	} else {
		answered := make(map[string]bool)
		ids, err := e.answers.AnsweredQuestionIDs(ctx, userID, subject)
		if err != nil {
			log.Printf("Error loading answered questions for user %d: %v", userID, err)
		}
		for _, id := range ids {
			answered[id] = true
		}
		for i := range questions {
			if answered[questions[i].ID] {
				continue
			}
			if !CanEncodeID(questions[i].ID) {
				log.Printf("Skipping %s question %d: id %q does not fit in answer buttons", subject, questions[i].Number, questions[i].ID)
				continue
			}
			question = &questions[i]
			break
		}
		if question == nil {
			return nil, ErrAllAnswered
		}
	}

	issuedAt := e.now()
	buttons := make([]Button, 0, len(question.Choices))
	for i := range question.Choices {
		data, err := e.codec.Encode(Token{
			QuestionID: question.ID,
			Choice:     i + 1,
			IssuedAt:   issuedAt,
			Subject:    subject,
		})
		if err != nil {
			return nil, fmt.Errorf("encode choice %d: %w", i+1, err)
		}
		buttons = append(buttons, Button{Label: ChoiceLabel(i), Data: data})
	}

	e.sessions.SetActive(userID, session.Active{
		QuestionID: question.ID,
		Number:     question.Number,
		IssuedAt:   issuedAt,
	})
	log.Printf("Serving %s question %d (%s) to user %d", subject, question.Number, question.ID, userID)

	return &Served{
		Question: *question,
		IssuedAt: issuedAt,
		Text:     renderQuestion(question, lang),
		Buttons:  buttons,
	}, nil
}

// ScoreSubmission decodes the callback data of a pressed choice button,
// records the submission and renders the verdict with fresh statistics.
func (e *Engine) ScoreSubmission(ctx context.Context, userID int64, data string, lang models.Language) (*Scored, error) {
	token, err := e.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	submittedAt := e.now()

	question, err := e.questions.QuestionByID(ctx, token.QuestionID)
	if err != nil {
		log.Printf("Error loading question %s for user %d: %v", token.QuestionID, userID, err)
		question = nil
	}
	if question == nil || question.Subject != token.Subject {
		return nil, fmt.Errorf("%w: %s in %s", ErrQuestionGone, token.QuestionID, token.Subject)
	}

	correct := question.IsCorrect(token.Choice)
	err = e.answers.InsertAnswer(ctx, models.AnswerSubmission{
		UserID:      userID,
		QuestionID:  question.ID,
		Choice:      token.Choice,
		Correct:     correct,
		StartedAt:   token.IssuedAt,
		SubmittedAt: submittedAt,
	})
	if err != nil {
		log.Printf("Error saving answer of user %d to question %s: %v", userID, question.ID, err)
	} else {
		log.Printf("Saved answer of user %d to question %d: choice=%d correct=%v", userID, question.Number, token.Choice, correct)
	}
	e.sessions.ClearActive(userID, question.ID)

	stats := e.GetStats(ctx, userID, token.Subject)
	elapsed := submittedAt.Sub(token.IssuedAt)

	return &Scored{
		Question: *question,
		Choice:   token.Choice,
		Correct:  correct,
		Elapsed:  elapsed,
		Stats:    stats,
		Text:     renderResult(question, token.Choice, correct, elapsed, stats, lang),
	}, nil
}

// ListWrong returns the numbers of questions the user answered incorrectly
func (e *Engine) ListWrong(ctx context.Context, userID int64, subject models.Subject) []int {
	numbers, err := e.answers.WrongQuestionNumbers(ctx, userID, subject)
	if err != nil {
		log.Printf("Error loading wrong answers for user %d: %v", userID, err)
		return nil
	}
	return numbers
}

// GetStats aggregates the user's submissions in subject
func (e *Engine) GetStats(ctx context.Context, userID int64, subject models.Subject) models.Stats {
	stats, err := e.answers.Stats(ctx, userID, subject)
	if err != nil {
		log.Printf("Error loading stats for user %d: %v", userID, err)
		return models.Stats{}
	}
	return stats
}

func renderQuestion(q *models.Question, lang models.Language) string {
	var sb strings.Builder
	sb.WriteString("*")
	sb.WriteString(EscapeMarkdown(i18n.Text(lang, i18n.KeyQuestionHeader, q.Number) + ":"))
	sb.WriteString("*\n")
	sb.WriteString(EscapeMarkdown(q.Prompt))
	sb.WriteString("\n\n")
	for i, choice := range q.Choices {
		sb.WriteString(ChoiceLabel(i))
		sb.WriteString("\\. ")
		sb.WriteString(EscapeMarkdown(strings.TrimSpace(choice)))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderResult(q *models.Question, choice int, correct bool, elapsed time.Duration, stats models.Stats, lang models.Language) string {
	verdict := i18n.Text(lang, i18n.KeyWrong)
	if correct {
		verdict = i18n.Text(lang, i18n.KeyCorrect)
	}
	explanation := q.Explanation(lang)
	if explanation == "" {
		explanation = i18n.Text(lang, i18n.KeyNoExplanation)
	}
	minutes, seconds := SplitElapsed(elapsed)

	return fmt.Sprintf("📘 %s\n%s: %s\n%s\n\n%s: %s\n\n%s\n%s",
		i18n.Text(lang, i18n.KeyQuestionHeader, q.Number),
		i18n.Text(lang, i18n.KeyYourChoice), ChoiceLabel(choice-1),
		verdict,
		i18n.Text(lang, i18n.KeyExplanation), explanation,
		i18n.Text(lang, i18n.KeyTimeTaken, minutes, seconds),
		i18n.Text(lang, i18n.KeyStatsLine, stats.Correct, stats.Total),
	)
}
