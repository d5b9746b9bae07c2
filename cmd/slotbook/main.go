package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/config"
	"github.com/Spok95/volunteer-slots/internal/logging"
)

// App — общие зависимости команд.
type App struct {
	ctx context.Context
	cfg *config.Config
	log *logging.Log
}

var cli *App

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "slotbook",
		Short:         "Slot booking for volunteers and instructors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(ctx)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cli != nil && cli.log != nil {
				cli.log.Closer()
			}
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedTrainingCmd())
	rootCmd.AddCommand(exportRosterCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initApp(ctx context.Context) error {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, ".env not loaded, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg, err := logging.Init(logging.Options{Level: cfg.LogLevel, Env: cfg.Env, Release: cfg.Release})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cli = &App{ctx: ctx, cfg: cfg, log: lg}
	lg.Base.Debug("config loaded",
		zap.String("store", cfg.Store),
		zap.String("tz", cfg.Location.String()),
		zap.String("env", cfg.Env),
	)
	return nil
}
