package bot

import (
	"context"
	"fmt"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/gmatbot/models"
)

// sender is the part of tgbotapi.BotAPI used to deliver replies
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot
type Bot struct {
	api     *tgbotapi.BotAPI
	out     sender
	handler *Handler

	// mu serializes event handling so each event completes before the next starts
	mu sync.Mutex
}

// New creates a bot delivering replies through api
func New(api *tgbotapi.BotAPI, handler *Handler) *Bot {
	return &Bot{api: api, out: api, handler: handler}
}

// NewAPI connects to Telegram with token
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = debug
	log.Printf("Authorized on account %s", api.Self.UserName)
	return api, nil
}

// Dispatch handles one update and delivers its reply
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	ev, ok := NewEvent(update)
	if !ok {
		log.Printf("Ignoring update %d without message or callback", update.UpdateID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	reply := b.handler.Handle(ctx, ev)
	b.deliver(reply)
}

// Start long-polls Telegram until ctx is cancelled
func (b *Bot) Start(ctx context.Context) {
	log.Println("Starting bot polling...")

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("Error deleting webhook: %v", err)
	}
	b.RegisterCommands()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			log.Println("Polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.Dispatch(ctx, update)
		}
	}
}

// RegisterCommands publishes the command menu shown by Telegram clients
func (b *Bot) RegisterCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot / 봇 시작"},
		{Command: "q", Description: "Next question / 다음 문제"},
		{Command: "wrong", Description: "Wrong answers / 틀린 문제"},
		{Command: "stats", Description: "Statistics / 통계"},
		{Command: "language", Description: "Change language / 언어 변경"},
		{Command: "help", Description: "Help / 도움말"},
	}
	for _, subject := range models.Subjects {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     string(subject),
			Description: "Subject " + subject.Label(),
		})
	}
	if _, err := b.out.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		log.Printf("Error registering bot commands: %v", err)
	}
}

// deliver acknowledges the callback, if any, and sends the reply text
func (b *Bot) deliver(r Reply) {
	if r.CallbackID != "" {
		callback := tgbotapi.NewCallback(r.CallbackID, r.CallbackText)
		callback.ShowAlert = r.Alert
		if _, err := b.out.Request(callback); err != nil {
			log.Printf("Error sending callback response: %v", err)
		}
	}
	if r.Text == "" {
		return
	}

	msg := tgbotapi.NewMessage(r.ChatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if len(r.Buttons) > 0 {
		msg.ReplyMarkup = inlineKeyboard(r)
	}

	if _, err := b.out.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)

		// If sending fails with markdown, try without formatting
		if msg.ParseMode == tgbotapi.ModeMarkdownV2 {
			log.Printf("Markdown rendering failed, falling back to plain text")
			msg.ParseMode = ""
			if _, err := b.out.Send(msg); err != nil {
				log.Printf("Plain text fallback also failed: %v", err)
			}
		}
	}
}

func inlineKeyboard(r Reply) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(r.Buttons))
	for _, buttons := range r.Buttons {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, button := range buttons {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(button.Label, button.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
