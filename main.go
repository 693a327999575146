package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/vkrasnov/gemini-telegram-bot/pkg/bot"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/gemini"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/kvstore"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/logger"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/media"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/reporter"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/repository"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/server"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/telegram"
	"github.com/vkrasnov/gemini-telegram-bot/pkg/workers"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY,required"`
	DeveloperChatID  int64  `env:"DEVELOPER_CHAT_ID,required"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	SupabaseURL      string `env:"SUPABASE_URL"`
	SupabaseKey      string `env:"SUPABASE_KEY"`
	SupabaseTable    string `env:"SUPABASE_TABLE" envDefault:"bot_kv"`
	AdminPassword    string `env:"ADMIN_PASSWORD"`
	ListenAddr       string `env:"LISTEN_ADDR" envDefault:":8080"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	workerGroup, err := setupWorkers()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Run(ctx)
}

func setupWorkers() (workers.Group, error) {
	// .env is for local development; on the hosting platform the variables
	// come from the environment directly.
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	telegramClient, err := telegram.NewClient(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("creating telegram client: %w", err)
	}

	geminiClient, err := gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	var store repository.KVStore
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		kv, err := kvstore.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTable)
		if err != nil {
			return nil, fmt.Errorf("creating kv store client: %w", err)
		}
		store = kv
	} else {
		slog.Warn("remote key-value store not configured; using defaults and in-memory context only")
	}

	configRepo := repository.NewConfigRepository(store)
	contextRepo := repository.NewContextRepository(store, repository.NewFallbackCache(0))

	dispatcher := bot.NewDispatcher(
		telegramClient,
		geminiClient,
		configRepo,
		contextRepo,
		media.NewStager(telegramClient, geminiClient),
		reporter.New(telegramClient, cfg.DeveloperChatID),
	)

	srv := server.New(dispatcher, telegramClient, configRepo, cfg.TelegramBotToken, cfg.AdminPassword)

	return workers.Group{
		workers.NewHTTPServer(cfg.ListenAddr, srv.Handler()),
	}, nil
}
