package bot

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/korjavin/gmatbot/i18n"
	"github.com/korjavin/gmatbot/models"
	"github.com/korjavin/gmatbot/quiz"
	"github.com/korjavin/gmatbot/session"
)

const (
	cmdStart    = "start"
	cmdHelp     = "help"
	cmdLanguage = "language"
	cmdWrong    = "wrong"
	cmdStats    = "stats"

	languagePrefix = "lang|"
)

// Reply is the single outbound answer to an Event
type Reply struct {
	ChatID   int64
	Text     string
	Markdown bool
	Buttons  [][]quiz.Button

	// CallbackID acknowledges a button press; CallbackText is shown as a toast or alert
	CallbackID   string
	CallbackText string
	Alert        bool
}

// Handler turns events into replies
type Handler struct {
	engine    *quiz.Engine
	sessions  *session.Tracker
	localizer *i18n.Localizer
}

// NewHandler creates a handler
func NewHandler(engine *quiz.Engine, sessions *session.Tracker, localizer *i18n.Localizer) *Handler {
	return &Handler{
		engine:    engine,
		sessions:  sessions,
		localizer: localizer,
	}
}

// Handle processes ev and always returns exactly one reply
func (h *Handler) Handle(ctx context.Context, ev Event) Reply {
	lang := h.localizer.Language(ctx, ev.UserID)

	switch ev.Kind {
	case EventCallback:
		log.Printf("Received callback from %s (ID: %d): %s", ev.UserName, ev.UserID, ev.Data)
		return h.handleCallback(ctx, ev, lang)
	case EventQuestion:
		log.Printf("Received question request from %s (ID: %d): %s", ev.UserName, ev.UserID, ev.Text)
		return h.handleQuestion(ctx, ev, lang)
	}

	log.Printf("Received message from %s (ID: %d): %s", ev.UserName, ev.UserID, ev.Text)
	reply := Reply{ChatID: ev.ChatID}

	if subject, ok := models.ParseSubject(ev.Command); ok {
		h.sessions.SetSubject(ctx, ev.UserID, subject)
		log.Printf("Subject of user %d set to %s", ev.UserID, subject)
		reply.Text = i18n.Text(lang, i18n.KeySubjectSet, subject.Label())
		return reply
	}

	switch ev.Command {
	case cmdStart:
		reply.Text = i18n.Text(lang, i18n.KeyWelcome) + "\n\n" + i18n.Text(lang, i18n.KeySelectLanguage)
		reply.Buttons = languageKeyboard()
	case cmdHelp:
		reply.Text = i18n.Text(lang, i18n.KeyHelp)
		if active, ok := h.sessions.Active(ev.UserID); ok {
			reply.Text += "\n\n" + i18n.Text(lang, i18n.KeyCurrentQuestion, active.Number)
		}
	case cmdLanguage:
		reply.Text = i18n.Text(lang, i18n.KeySelectLanguage)
		reply.Buttons = languageKeyboard()
	case cmdWrong:
		reply.Text = h.wrongText(ctx, ev.UserID, lang)
	case cmdStats:
		reply.Text = h.statsText(ctx, ev.UserID, lang)
	default:
		reply.Text = i18n.Text(lang, i18n.KeyUnknownCommand, ev.Text)
	}
	return reply
}

func (h *Handler) handleQuestion(ctx context.Context, ev Event, lang models.Language) Reply {
	reply := Reply{ChatID: ev.ChatID}
	subject := h.sessions.Subject(ctx, ev.UserID)

	served, err := h.engine.ServeNext(ctx, ev.UserID, subject, ev.Number, lang)
	var notFound *quiz.NotFoundError
	switch {
	case err == nil:
		reply.Text = served.Text
		reply.Markdown = true
		reply.Buttons = [][]quiz.Button{served.Buttons}
	case errors.As(err, &notFound):
		reply.Text = i18n.Text(lang, i18n.KeyNotFound, notFound.Number)
	case errors.Is(err, quiz.ErrAllAnswered):
		reply.Text = i18n.Text(lang, i18n.KeyAllAnswered)
	default:
		log.Printf("Error serving question to user %d: %v", ev.UserID, err)
		reply.Text = i18n.Text(lang, i18n.KeyError)
	}
	return reply
}

func (h *Handler) handleCallback(ctx context.Context, ev Event, lang models.Language) Reply {
	reply := Reply{ChatID: ev.ChatID, CallbackID: ev.CallbackID}

	switch {
	case strings.HasPrefix(ev.Data, languagePrefix):
		chosen, ok := models.ParseLanguage(strings.TrimPrefix(ev.Data, languagePrefix))
		if !ok {
			log.Printf("Invalid language callback from user %d: %q", ev.UserID, ev.Data)
			reply.CallbackText = i18n.Text(lang, i18n.KeyInvalidResponse)
			return reply
		}
		if err := h.localizer.SetLanguage(ctx, ev.UserID, chosen); err != nil {
			log.Printf("Error saving language of user %d: %v", ev.UserID, err)
			reply.CallbackText = i18n.Text(lang, i18n.KeyError)
			return reply
		}
		reply.Text = i18n.Text(chosen, i18n.KeyLanguageSet)
		return reply

	case quiz.IsToken(ev.Data):
		scored, err := h.engine.ScoreSubmission(ctx, ev.UserID, ev.Data, lang)
		switch {
		case err == nil:
			reply.Text = scored.Text
		case errors.Is(err, quiz.ErrMalformedCallback):
			log.Printf("Malformed callback from user %d: %q: %v", ev.UserID, ev.Data, err)
			reply.CallbackText = i18n.Text(lang, i18n.KeyInvalidResponse)
			reply.Alert = true
		case errors.Is(err, quiz.ErrQuestionGone):
			log.Printf("Callback from user %d references a missing question: %v", ev.UserID, err)
			reply.CallbackText = i18n.Text(lang, i18n.KeyQuestionGone)
			reply.Alert = true
		default:
			log.Printf("Error scoring answer of user %d: %v", ev.UserID, err)
			reply.CallbackText = i18n.Text(lang, i18n.KeyError)
		}
		return reply
	}

	log.Printf("Malformed callback from user %d: %q", ev.UserID, ev.Data)
	reply.CallbackText = i18n.Text(lang, i18n.KeyInvalidResponse)
	reply.Alert = true
	return reply
}

func (h *Handler) wrongText(ctx context.Context, userID int64, lang models.Language) string {
	subject := h.sessions.Subject(ctx, userID)
	numbers := h.engine.ListWrong(ctx, userID, subject)
	if len(numbers) == 0 {
		return i18n.Text(lang, i18n.KeyNoWrong)
	}

	lines := make([]string, 0, len(numbers)+1)
	lines = append(lines, i18n.Text(lang, i18n.KeyWrongHeader, subject.Label()))
	for _, n := range numbers {
		lines = append(lines, i18n.Text(lang, i18n.KeyWrongItem, n))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) statsText(ctx context.Context, userID int64, lang models.Language) string {
	subject := h.sessions.Subject(ctx, userID)
	stats := h.engine.GetStats(ctx, userID, subject)
	if stats.Total == 0 {
		return i18n.Text(lang, i18n.KeyNoAttempts, subject.Label())
	}
	return i18n.Text(lang, i18n.KeyStats, subject.Label(), stats.Correct, stats.Total, stats.Percent())
}

func languageKeyboard() [][]quiz.Button {
	return [][]quiz.Button{
		{{Label: "🇰🇷 한국어", Data: languagePrefix + string(models.LanguageKorean)}},
		{{Label: "🇺🇸 English", Data: languagePrefix + string(models.LanguageEnglish)}},
	}
}
