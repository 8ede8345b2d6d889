package models

import (
	"strings"
	"time"
)

// Subject is the category tag partitioning the question bank
type Subject string

const (
	SubjectCR   Subject = "cr"
	SubjectMath Subject = "math"
	SubjectRC   Subject = "rc"
	SubjectDI   Subject = "di"

	DefaultSubject = SubjectCR
)

// Subjects lists every subject in menu order
var Subjects = []Subject{SubjectCR, SubjectMath, SubjectRC, SubjectDI}

// ParseSubject normalizes s and reports whether it names a known subject
func ParseSubject(s string) (Subject, bool) {
	subject := Subject(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Subjects {
		if subject == known {
			return subject, true
		}
	}
	return "", false
}

// Label is the upper-case form shown to users, e.g. "CR"
func (s Subject) Label() string {
	return strings.ToUpper(string(s))
}

// Language is a user interface language code
type Language string

const (
	LanguageKorean  Language = "ko"
	LanguageEnglish Language = "en"

	DefaultLanguage = LanguageKorean
)

// Languages lists every supported language
var Languages = []Language{LanguageKorean, LanguageEnglish}

// ParseLanguage normalizes s and reports whether it names a supported language
func ParseLanguage(s string) (Language, bool) {
	lang := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Languages {
		if lang == known {
			return lang, true
		}
	}
	return "", false
}

// Question is one multiple-choice quiz question
type Question struct {
	ID           string              `json:"id"`
	Number       int                 `json:"number"`
	Subject      Subject             `json:"subject"`
	Prompt       string              `json:"question"`
	Choices      []string            `json:"choices"`
	Answer       int                 `json:"answer"` // 1-based index into Choices
	Explanations map[Language]string `json:"explanation,omitempty"`
}

// Explanation returns the explanation in lang, falling back to the default
// language and then to any available one.
func (q *Question) Explanation(lang Language) string {
	if text := q.Explanations[lang]; text != "" {
		return text
	}
	if text := q.Explanations[DefaultLanguage]; text != "" {
		return text
	}
	for _, l := range Languages {
		if text := q.Explanations[l]; text != "" {
			return text
		}
	}
	return ""
}

// IsCorrect reports whether the 1-based choice matches the right answer
func (q *Question) IsCorrect(choice int) bool {
	return choice == q.Answer
}

// AnswerSubmission is the append-only record of one answer to one question
type AnswerSubmission struct {
	UserID      int64
	QuestionID  string
	Choice      int
	Correct     bool
	StartedAt   time.Time
	SubmittedAt time.Time
	// AnsweredAt is stamped by the store when the row is written
	AnsweredAt time.Time
}
