package quiz

import (
	"errors"
	"fmt"

	"github.com/korjavin/gmatbot/models"
)

var (
	// ErrAllAnswered means every question of the subject has a submission
	ErrAllAnswered = errors.New("all questions answered")
	// ErrMalformedCallback means the callback payload could not be decoded or verified
	ErrMalformedCallback = errors.New("malformed callback")
	// ErrQuestionGone means the question referenced by a token is no longer in the store
	ErrQuestionGone = errors.New("question no longer available")
)

// NotFoundError is returned when an explicitly requested question number does not exist
type NotFoundError struct {
	Subject models.Subject
	Number  int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("question %d not found in %s", e.Number, e.Subject)
}
