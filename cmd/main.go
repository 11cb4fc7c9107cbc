package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"punchAgent/internal/agent"
	"punchAgent/internal/browser"
	"punchAgent/internal/cli"
	"punchAgent/internal/cli/commands"
	"punchAgent/internal/config"
	"punchAgent/internal/database"
	"punchAgent/internal/diagnostics"
	"punchAgent/internal/llm"
	"punchAgent/internal/logger"
	"punchAgent/internal/migrations"
	"punchAgent/internal/page"
	"punchAgent/internal/sanitizer"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewWithFile(cfg.Logger.Env, cfg.Logger.Level, cfg.Logger.File)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Некорректная конфигурация", zap.Error(err))
	}

	if err := migrations.Run(cfg, log); err != nil {
		log.Fatal("Ошибка миграций", zap.Error(err))
	}

	san := sanitizer.New(cfg.Credentials.Username, cfg.Credentials.Password)

	var (
		recorder agent.Recorder = agent.NopRecorder{}
		history  commands.History
		llmLog   llm.Logger
	)
	if cfg.Database.Enabled() {
		db, err := database.New(cfg, log)
		if err != nil {
			log.Fatal("Ошибка подключения к БД", zap.Error(err))
		}
		defer db.Close(log)

		repo := database.NewRunRepository(db.DB)
		recorder, history, llmLog = repo, repo, repo
	} else {
		log.Info("БД не настроена, история запусков не сохраняется")
	}

	var picker llm.ButtonPicker
	if cfg.OpenAI.KeyAI != "" {
		picker = llm.NewClient(cfg.OpenAI.KeyAI, cfg.OpenAI.Model, cfg.OpenAI.RequestsPerMinute, llmLog, san)
	}

	runner := agent.NewRunner(
		browser.NewFactory(cfg),
		page.NewSecurTime(cfg.Session.LandingURL),
		log.Named("runner"),
		agent.Config{
			Session:     cfg.Session,
			Credentials: cfg.Credentials,
			Picker:      picker,
			Recorder:    recorder,
			Shooter:     diagnostics.New(cfg.Diagnostics, log.Named("diagnostics")),
			Sanitizer:   san,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := cli.New(cfg, log, runner, history, san)
	if err := console.Execute(ctx, os.Args[1:]); err != nil {
		log.Error("Команда завершилась с ошибкой", zap.String("error", san.Error(err)))
		stop()
		log.Sync()
		os.Exit(1)
	}
}
