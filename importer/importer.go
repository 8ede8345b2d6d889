// Package importer loads question banks from JSON files into the store.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/korjavin/gmatbot/models"
	"github.com/korjavin/gmatbot/quiz"
)

// Store receives imported questions
type Store interface {
	UpsertQuestion(ctx context.Context, q models.Question) error
}

// Explainer writes an explanation of q in lang
type Explainer interface {
	Explain(ctx context.Context, q *models.Question, lang models.Language) (string, error)
}

// Result counts the outcome of an import
type Result struct {
	Imported  int
	Failed    int
	Explained int
}

// rawQuestion accepts both the bot's own field names and the legacy table columns
type rawQuestion struct {
	ID             string          `json:"id"`
	Number         int             `json:"number"`
	QuestionNumber int             `json:"question_number"`
	Subject        string          `json:"subject"`
	Type           string          `json:"type"`
	Question       string          `json:"question"`
	Choices        []string        `json:"choices"`
	Answer         json.RawMessage `json:"answer"`
	Explanation    json.RawMessage `json:"explanation"`
	ExplanationEN  string          `json:"explanation_en"`
}

// LoadFile reads and validates a JSON array of questions
func LoadFile(path string) ([]models.Question, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(file)
}

// Parse decodes and validates a JSON array of questions
func Parse(data []byte) ([]models.Question, error) {
	var raws []rawQuestion
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	questions := make([]models.Question, 0, len(raws))
	seen := make(map[string]bool)
	for i, raw := range raws {
		q, err := raw.toQuestion()
		if err != nil {
			return nil, fmt.Errorf("question #%d: %w", i+1, err)
		}
		key := fmt.Sprintf("%s/%d", q.Subject, q.Number)
		if seen[key] {
			return nil, fmt.Errorf("question #%d: duplicate number %d in %s", i+1, q.Number, q.Subject)
		}
		seen[key] = true
		questions = append(questions, q)
	}
	return questions, nil
}

func (r rawQuestion) toQuestion() (models.Question, error) {
	number := r.Number
	if number == 0 {
		number = r.QuestionNumber
	}
	if number <= 0 {
		return models.Question{}, fmt.Errorf("missing question number")
	}

	subjectName := r.Subject
	if subjectName == "" {
		subjectName = r.Type
	}
	subject, ok := models.ParseSubject(subjectName)
	if !ok {
		return models.Question{}, fmt.Errorf("question %d: unknown subject %q", number, subjectName)
	}

	prompt := strings.TrimSpace(r.Question)
	if prompt == "" {
		return models.Question{}, fmt.Errorf("question %d: empty text", number)
	}
	choices := make([]string, 0, len(r.Choices))
	for _, c := range r.Choices {
		choices = append(choices, strings.TrimSpace(c))
	}
	if len(choices) < 2 || len(choices) > 5 {
		return models.Question{}, fmt.Errorf("question %d: %d choices, want 2 to 5", number, len(choices))
	}

	answer, err := parseAnswer(r.Answer)
	if err != nil {
		return models.Question{}, fmt.Errorf("question %d: %w", number, err)
	}
	if answer < 1 || answer > len(choices) {
		return models.Question{}, fmt.Errorf("question %d: answer %d out of range", number, answer)
	}

	explanations, err := parseExplanation(r.Explanation)
	if err != nil {
		return models.Question{}, fmt.Errorf("question %d: %w", number, err)
	}
	if r.ExplanationEN != "" {
		explanations[models.LanguageEnglish] = strings.TrimSpace(r.ExplanationEN)
	}

	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = uuid.NewString()
	} else if !quiz.CanEncodeID(id) {
		return models.Question{}, fmt.Errorf("question %d: id %q does not fit in answer buttons", number, id)
	}

	return models.Question{
		ID:           id,
		Number:       number,
		Subject:      subject,
		Prompt:       prompt,
		Choices:      choices,
		Answer:       answer,
		Explanations: explanations,
	}, nil
}

// parseAnswer accepts a 1-based index (2 or "2") or a choice letter ("B")
func parseAnswer(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing answer")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("answer %s is neither a number nor a letter", string(raw))
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z' {
		return int(s[0]-'A') + 1, nil
	}
	return 0, fmt.Errorf("answer %q is neither a number nor a letter", s)
}

// parseExplanation accepts a plain string (default language) or a language map
func parseExplanation(raw json.RawMessage) (map[models.Language]string, error) {
	out := make(map[models.Language]string)
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text = strings.TrimSpace(text); text != "" {
			out[models.DefaultLanguage] = text
		}
		return out, nil
	}
	var byLang map[string]string
	if err := json.Unmarshal(raw, &byLang); err != nil {
		return nil, fmt.Errorf("explanation must be a string or a language map")
	}
	for code, text := range byLang {
		lang, ok := models.ParseLanguage(code)
		if !ok {
			return nil, fmt.Errorf("explanation language %q not supported", code)
		}
		if text = strings.TrimSpace(text); text != "" {
			out[lang] = text
		}
	}
	return out, nil
}

// Import upserts questions into store. When explainer is not nil, missing
// explanations are generated for every supported language first.
func Import(ctx context.Context, store Store, explainer Explainer, questions []models.Question) Result {
	var result Result
	for i := range questions {
		q := &questions[i]
		if explainer != nil {
			for _, lang := range models.Languages {
				if q.Explanations[lang] != "" {
					continue
				}
				text, err := explainer.Explain(ctx, q, lang)
				if err != nil {
					log.Printf("Error generating %s explanation for %s question %d: %v", lang, q.Subject, q.Number, err)
					continue
				}
				if q.Explanations == nil {
					q.Explanations = make(map[models.Language]string)
				}
				q.Explanations[lang] = text
				result.Explained++
			}
		}

		if err := store.UpsertQuestion(ctx, *q); err != nil {
			log.Printf("Error importing %s question %d: %v", q.Subject, q.Number, err)
			result.Failed++
			continue
		}
		result.Imported++
	}
	log.Printf("Imported %d questions (%d failed, %d explanations generated)", result.Imported, result.Failed, result.Explained)
	return result
}
