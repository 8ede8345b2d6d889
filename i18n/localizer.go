package i18n

import (
	"context"
	"log"

	"github.com/korjavin/gmatbot/models"
)

// PreferenceStore persists the language chosen by each user
type PreferenceStore interface {
	Language(ctx context.Context, userID int64) (models.Language, error)
	SetLanguage(ctx context.Context, userID int64, lang models.Language) error
}

// Localizer resolves the language of a user and renders messages in it
type Localizer struct {
	store PreferenceStore
}

// NewLocalizer creates a Localizer backed by store
func NewLocalizer(store PreferenceStore) *Localizer {
	return &Localizer{store: store}
}

// Language returns the user's language, or models.DefaultLanguage when
// unset, unsupported or the store fails.
func (l *Localizer) Language(ctx context.Context, userID int64) models.Language {
	lang, err := l.store.Language(ctx, userID)
	if err != nil {
		log.Printf("Error loading language for user %d, using %s: %v", userID, models.DefaultLanguage, err)
		return models.DefaultLanguage
	}
	if parsed, ok := models.ParseLanguage(string(lang)); ok {
		return parsed
	}
	return models.DefaultLanguage
}

// SetLanguage upserts the user's language
func (l *Localizer) SetLanguage(ctx context.Context, userID int64, lang models.Language) error {
	if err := l.store.SetLanguage(ctx, userID, lang); err != nil {
		return err
	}
	log.Printf("Language for user %d set to %s", userID, lang)
	return nil
}
