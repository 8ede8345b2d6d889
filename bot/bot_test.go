package bot

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/gmatbot/models"
	"github.com/korjavin/gmatbot/quiz"
)

type fakeSender struct {
	sent         []tgbotapi.MessageConfig
	requests     []tgbotapi.Chattable
	failMarkdown bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, ok := c.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable")
	}
	f.sent = append(f.sent, msg)
	if f.failMarkdown && msg.ParseMode == tgbotapi.ModeMarkdownV2 {
		return tgbotapi.Message{}, errors.New("Bad Request: can't parse entities")
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newTestBot(store *memStore) (*Bot, *fakeSender) {
	out := &fakeSender{}
	return &Bot{out: out, handler: newTestHandler(store)}, out
}

func TestDeliverMessageWithKeyboard(t *testing.T) {
	b, out := newTestBot(newMemStore())
	b.deliver(Reply{
		ChatID:   70,
		Text:     "*Question 1:*",
		Markdown: true,
		Buttons:  [][]quiz.Button{{{Label: "A", Data: "1|a"}, {Label: "B", Data: "1|b"}}},
	})

	if len(out.sent) != 1 || len(out.requests) != 0 {
		t.Fatalf("want one message and no requests, got %d/%d", len(out.sent), len(out.requests))
	}
	msg := out.sent[0]
	if msg.ChatID != 70 || msg.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 2 {
		t.Fatalf("unexpected markup: %+v", msg.ReplyMarkup)
	}
	if data := markup.InlineKeyboard[0][1].CallbackData; data == nil || *data != "1|b" {
		t.Fatalf("unexpected callback data: %v", data)
	}
}

func TestDeliverFallsBackToPlainText(t *testing.T) {
	b, out := newTestBot(newMemStore())
	out.failMarkdown = true
	b.deliver(Reply{ChatID: 70, Text: "*broken", Markdown: true})

	if len(out.sent) != 2 {
		t.Fatalf("want markdown attempt and plain retry, got %d", len(out.sent))
	}
	if out.sent[1].ParseMode != "" || out.sent[1].Text != "*broken" {
		t.Fatalf("unexpected retry: %+v", out.sent[1])
	}
}

func TestDeliverCallbackOnly(t *testing.T) {
	b, out := newTestBot(newMemStore())
	b.deliver(Reply{ChatID: 70, CallbackID: "cb", CallbackText: "nope", Alert: true})

	if len(out.sent) != 0 || len(out.requests) != 1 {
		t.Fatalf("want only the callback answer, got %d/%d", len(out.sent), len(out.requests))
	}
	cb, ok := out.requests[0].(tgbotapi.CallbackConfig)
	if !ok || cb.CallbackQueryID != "cb" || cb.Text != "nope" || !cb.ShowAlert {
		t.Fatalf("unexpected callback answer: %+v", out.requests[0])
	}
}

func TestDispatchAnswersEveryEvent(t *testing.T) {
	b, out := newTestBot(newMemStore())
	ctx := context.Background()

	b.Dispatch(ctx, textUpdate("/q"))
	if len(out.sent) != 1 {
		t.Fatalf("want one message, got %d", len(out.sent))
	}
	markup := out.sent[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	data := *markup.InlineKeyboard[0][0].CallbackData

	b.Dispatch(ctx, tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 70}},
		Data:    data,
	}})
	if len(out.sent) != 2 || len(out.requests) != 1 {
		t.Fatalf("want result message and callback answer, got %d/%d", len(out.sent), len(out.requests))
	}
	if !strings.Contains(out.sent[1].Text, "📊 현재 1문제 중 0문제 정답") {
		t.Fatalf("unexpected result: %q", out.sent[1].Text)
	}

	b.Dispatch(ctx, tgbotapi.Update{UpdateID: 9})
	if len(out.sent) != 2 {
		t.Fatalf("empty update must not be answered")
	}
}

func TestRegisterCommands(t *testing.T) {
	b, out := newTestBot(newMemStore())
	b.RegisterCommands()

	if len(out.requests) != 1 {
		t.Fatalf("want one request, got %d", len(out.requests))
	}
	cfg, ok := out.requests[0].(tgbotapi.SetMyCommandsConfig)
	if !ok {
		t.Fatalf("unexpected request %T", out.requests[0])
	}
	if len(cfg.Commands) != 6+len(models.Subjects) {
		t.Fatalf("unexpected command count %d", len(cfg.Commands))
	}
}

const statsUpdate = `{"update_id":1,"message":{"message_id":1,"date":0,
"from":{"id":7,"is_bot":false,"first_name":"Kim"},"chat":{"id":70,"type":"private"},
"text":"/stats","entities":[{"type":"bot_command","offset":0,"length":6}]}}`

func TestWebhook(t *testing.T) {
	store := newMemStore()
	store.languages[7] = models.LanguageEnglish
	b, out := newTestBot(store)
	app := b.WebhookApp("s3cret")

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("health: %v %v", resp, err)
	}

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(statsUpdate))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != 401 {
		t.Fatalf("missing secret: %v %v", resp, err)
	}

	req = httptest.NewRequest("POST", "/webhook", strings.NewReader("{not json"))
	req.Header.Set(secretHeader, "s3cret")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != 400 {
		t.Fatalf("bad body: %v %v", resp, err)
	}

	req = httptest.NewRequest("POST", "/webhook", strings.NewReader(statsUpdate))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretHeader, "s3cret")
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != 200 {
		t.Fatalf("update: %v %v", resp, err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Fatalf("unexpected body %q", body)
	}
	if len(out.sent) != 1 || out.sent[0].ChatID != 70 || out.sent[0].Text != "📊 [CR] No attempts yet." {
		t.Fatalf("unexpected replies: %+v", out.sent)
	}
}
