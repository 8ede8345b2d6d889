package bot

import (
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func textUpdate(text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7, UserName: "kim"},
		Chat: &tgbotapi.Chat{ID: 70},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		verb := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(verb)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func TestNewEventCommands(t *testing.T) {
	cases := []struct {
		text    string
		kind    EventKind
		command string
		number  int
	}{
		{"/start", EventCommand, "start", -1},
		{"/Stats@gmat_bot", EventCommand, "stats", -1},
		{"/CR", EventCommand, "cr", -1},
		{"/q", EventQuestion, "", -1},
		{"/Q12", EventQuestion, "", 12},
		{"/q7@gmat_bot", EventQuestion, "", 7},
		{"/q99999999999999999999", EventCommand, "", -1},
		{"/quit", EventCommand, "quit", -1},
		{"hello there", EventCommand, "", -1},
	}
	for _, c := range cases {
		ev, ok := NewEvent(textUpdate(c.text))
		if !ok {
			t.Fatalf("%q: update ignored", c.text)
		}
		if ev.Kind != c.kind || ev.Command != c.command {
			t.Fatalf("%q: got kind=%d command=%q", c.text, ev.Kind, ev.Command)
		}
		if ev.UserID != 7 || ev.ChatID != 70 || ev.UserName != "kim" {
			t.Fatalf("%q: identity not carried: %+v", c.text, ev)
		}
		switch {
		case c.number < 0 && ev.Number != nil:
			t.Fatalf("%q: unexpected number %d", c.text, *ev.Number)
		case c.number >= 0 && (ev.Number == nil || *ev.Number != c.number):
			t.Fatalf("%q: want number %d, got %v", c.text, c.number, ev.Number)
		}
	}
}

func TestNewEventCallback(t *testing.T) {
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
		Data:    "lang|en",
	}}
	ev, ok := NewEvent(update)
	if !ok || ev.Kind != EventCallback {
		t.Fatalf("want callback event, got %+v", ev)
	}
	if ev.CallbackID != "cb-1" || ev.Data != "lang|en" || ev.ChatID != 70 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// without the originating message the reply goes to the private chat
	update.CallbackQuery.Message = nil
	ev, _ = NewEvent(update)
	if ev.ChatID != 7 {
		t.Fatalf("want chat 7, got %d", ev.ChatID)
	}
}

func TestNewEventIgnored(t *testing.T) {
	if _, ok := NewEvent(tgbotapi.Update{UpdateID: 3}); ok {
		t.Fatalf("empty update must be ignored")
	}
	if _, ok := NewEvent(tgbotapi.Update{Message: &tgbotapi.Message{Text: "/start"}}); ok {
		t.Fatalf("message without sender must be ignored")
	}
}
