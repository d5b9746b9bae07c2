package main

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/app"
	"github.com/Spok95/volunteer-slots/internal/bot"
	"github.com/Spok95/volunteer-slots/internal/db"
	"github.com/Spok95/volunteer-slots/internal/jobs"
	"github.com/Spok95/volunteer-slots/internal/memstore"
	"github.com/Spok95/volunteer-slots/internal/observability"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
)

// backend — хранилище, которое умеет всё, что нужно serve.
type backend interface {
	scheduling.Store
	bot.Directory
	app.Pinger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the Telegram bot and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cli)
		},
	}
}

func serve(a *App) error {
	log := a.log.Base
	flush, err := observability.InitSentry(a.cfg.SentryDSN, a.cfg.Env, a.cfg.Release)
	if err != nil {
		log.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	store, closeStore, err := openBackend(a)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := scheduling.NewService(store, a.log.Named("scheduling"), scheduling.WithLocation(a.cfg.Location))

	api := app.NewAPI(svc, store, a.log.Named("http"))
	httpSrv := app.StartHTTP(a.ctx, a.cfg.HTTPAddr, api.Routes(), log)

	runner := jobs.New(a.ctx, a.log.Named("jobs"))
	runner.Every(a.cfg.GaugeInterval, jobs.FreeSlotsJobName, jobs.FreeSlotsGauge(svc, nil))

	if a.cfg.BotToken != "" {
		tg, err := tgbotapi.NewBotAPI(a.cfg.BotToken)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		tg.Debug = a.cfg.Env != "prod"
		log.Info("bot started", zap.String("username", tg.Self.UserName))

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := tg.GetUpdatesChan(u)
		go bot.New(tg, svc, store, a.log.Named("bot")).Run(a.ctx, updates)
		defer tg.StopReceivingUpdates()
	} else {
		log.Info("BOT_TOKEN is empty, telegram bot disabled")
	}

	<-a.ctx.Done()
	log.Info("shutting down")
	httpSrv.Wait()
	return nil
}

func openBackend(a *App) (backend, func(), error) {
	if a.cfg.Store == "memory" {
		a.log.Base.Warn("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	database, err := db.Open(a.ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(a.ctx, database); err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return db.NewStore(database, a.log.Named("db")), func() { _ = database.Close() }, nil
}
