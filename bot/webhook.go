package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gofiber/fiber/v2"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookApp builds the HTTP server receiving Telegram updates.
// When secret is not empty, requests must carry it in the secret token header.
func (b *Bot) WebhookApp(secret string) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/webhook", func(c *fiber.Ctx) error {
		if secret != "" && c.Get(secretHeader) != secret {
			log.Printf("Rejected webhook request from %s: bad secret token", c.IP())
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		var update tgbotapi.Update
		if err := json.Unmarshal(c.Body(), &update); err != nil {
			log.Printf("Error decoding webhook update: %v", err)
			return c.Status(fiber.StatusBadRequest).SendString("bad update")
		}

		b.Dispatch(c.UserContext(), update)
		return c.SendString("OK")
	})

	return app
}

// RegisterWebhook points Telegram at url
func (b *Bot) RegisterWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := b.api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	log.Printf("Webhook registered at %s", url)
	return nil
}

// ServeWebhook listens on addr until ctx is cancelled
func (b *Bot) ServeWebhook(ctx context.Context, addr, secret string) error {
	app := b.WebhookApp(secret)
	b.RegisterCommands()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Webhook server listening on %s", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down webhook server: %w", err)
		}
		log.Println("Webhook server stopped")
		return nil
	}
}
