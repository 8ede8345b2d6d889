package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/korjavin/gmatbot/ai"
	"github.com/korjavin/gmatbot/bot"
	"github.com/korjavin/gmatbot/config"
	"github.com/korjavin/gmatbot/database"
	"github.com/korjavin/gmatbot/i18n"
	"github.com/korjavin/gmatbot/importer"
	"github.com/korjavin/gmatbot/quiz"
	"github.com/korjavin/gmatbot/session"
)

type options struct {
	importFile string
	explain    bool
	webhook    bool
	poll       bool
}

func main() {
	// Configure logging
	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("Starting GMAT quiz bot...")

	var opts options
	pflag.StringVar(&opts.importFile, "import", "", "import a JSON question bank and exit; a known id moves to its new number")
	pflag.BoolVar(&opts.explain, "explain", false, "generate missing explanations while importing")
	pflag.BoolVar(&opts.webhook, "webhook", false, "serve updates through the webhook server")
	pflag.BoolVar(&opts.poll, "poll", false, "long-poll for updates even in production")
	pflag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	// Load config
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.importFile != "" {
		return runImport(ctx, store, cfg, opts.importFile, opts.explain)
	}

	sessions := session.NewTracker(store)
	engine := quiz.NewEngine(store, store, sessions, quiz.NewCodec(cfg.CallbackSecret))
	handler := bot.NewHandler(engine, sessions, i18n.NewLocalizer(store))

	api, err := bot.NewAPI(cfg.BotToken, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	b := bot.New(api, handler)
	log.Println("Bot initialized successfully")

	if (cfg.Production || opts.webhook) && !opts.poll {
		if cfg.WebhookURL != "" {
			if err := b.RegisterWebhook(cfg.WebhookURL, cfg.WebhookSecret); err != nil {
				return err
			}
		}
		return b.ServeWebhook(ctx, ":"+cfg.Port, cfg.WebhookSecret)
	}

	b.Start(ctx)
	return nil
}

func openStore(cfg *config.Config) (database.Store, error) {
	if cfg.UseHostedDatabase() {
		dsn, err := database.PostgresDSN(cfg.DatabaseURL, cfg.DatabaseKey)
		if err != nil {
			return nil, err
		}
		log.Println("Using hosted Postgres database")
		return database.NewPostgres(dsn)
	}
	log.Printf("Using local SQLite database at %s", cfg.DatabasePath)
	return database.New(cfg.DatabasePath)
}

func runImport(ctx context.Context, store database.Store, cfg *config.Config, path string, explain bool) error {
	questions, err := importer.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read question bank: %w", err)
	}

	var explainer importer.Explainer
	if explain {
		if cfg.DeepseekAPIKey == "" {
			return errors.New("--explain requires DEEPSEEK_API_KEY")
		}
		explainer = ai.NewDeepseekClient(cfg.DeepseekAPIKey)
	}

	result := importer.Import(ctx, store, explainer, questions)
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d questions failed to import", result.Failed, len(questions))
	}
	return nil
}
