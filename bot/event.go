package bot

import (
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// EventKind tells how an inbound update should be dispatched
type EventKind int

const (
	EventCommand EventKind = iota
	EventQuestion
	EventCallback
)

// Event is the transport-independent shape of an inbound update
type Event struct {
	Kind     EventKind
	UserID   int64
	ChatID   int64
	UserName string

	// Command is the lower-case verb without slash or bot mention; empty for plain text
	Command string
	Text    string
	// Number is set for question requests naming an explicit question, e.g. /q12
	Number *int

	CallbackID string
	Data       string
}

var questionPattern = regexp.MustCompile(`^/[qQ](\d*)(?:@\w+)?$`)

// NewEvent normalizes update; ok is false for updates the bot ignores
func NewEvent(update tgbotapi.Update) (Event, bool) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.From == nil {
			return Event{}, false
		}
		chatID := cb.From.ID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}
		return Event{
			Kind:       EventCallback,
			UserID:     cb.From.ID,
			ChatID:     chatID,
			UserName:   cb.From.UserName,
			CallbackID: cb.ID,
			Data:       cb.Data,
		}, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return Event{}, false
		}
		ev := Event{
			Kind:     EventCommand,
			UserID:   msg.From.ID,
			ChatID:   msg.Chat.ID,
			UserName: msg.From.UserName,
			Text:     strings.TrimSpace(msg.Text),
		}
		if m := questionPattern.FindStringSubmatch(ev.Text); m != nil {
			ev.Kind = EventQuestion
			if m[1] != "" {
				n, err := strconv.Atoi(m[1])
				if err != nil {
					// too many digits to be a question number
					ev.Kind = EventCommand
					return ev, true
				}
				ev.Number = &n
			}
			return ev, true
		}
		if msg.IsCommand() {
			ev.Command = strings.ToLower(msg.Command())
		}
		return ev, true
	}
	return Event{}, false
}
