package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Spok95/volunteer-slots/internal/db"
	"github.com/Spok95/volunteer-slots/internal/export"
	"github.com/Spok95/volunteer-slots/internal/models"
	"github.com/Spok95/volunteer-slots/internal/scheduling"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.Open(cli.ctx, cli.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()
			if err := db.Migrate(cli.ctx, database); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			cli.log.Base.Info("migrations applied")
			return nil
		},
	}
}

func seedTrainingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-training <file.yaml>",
		Short: "Load training checklist items from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := db.LoadTrainingItemsFile(args[0])
			if err != nil {
				return err
			}
			svc, closeDB, err := postgresService()
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := svc.SeedTrainingItems(cli.ctx, items)
			if err != nil {
				return err
			}
			fmt.Printf("✅ %d training items loaded from %s\n", n, args[0])
			return nil
		},
	}
}

func exportRosterCmd() *cobra.Command {
	var (
		instructor   string
		out          string
		withTraining bool
	)
	cmd := &cobra.Command{
		Use:   "export-roster",
		Short: "Export upcoming bookings of an instructor to xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			instructorID, err := uuid.Parse(instructor)
			if err != nil {
				return fmt.Errorf("bad --instructor: %w", err)
			}
			svc, closeDB, err := postgresService()
			if err != nil {
				return err
			}
			defer closeDB()

			// оператор CLI действует как админ
			req := scheduling.Request{UserID: instructorID, Role: models.Admin, AsOf: time.Now()}
			entries, err := svc.ListRosterForSlotOwner(cli.ctx, req, instructorID)
			if err != nil {
				return err
			}
			sheets := []export.SheetSpec{export.RosterSheet(entries, svc.Location())}

			if withTraining {
				items, err := svc.ListTrainingItems(cli.ctx, req)
				if err != nil {
					return err
				}
				vols, err := svc.ListVolunteers(cli.ctx, req, "")
				if err != nil {
					return err
				}
				matrix, err := svc.ProgressMatrix(cli.ctx, req, nil)
				if err != nil {
					return err
				}
				sheets = append(sheets, export.ProgressSheet(items, vols, matrix))
			}

			wb, err := export.NewWorkbook(sheets)
			if err != nil {
				return err
			}
			defer func() { _ = wb.Close() }()

			if out == "" {
				out = export.RosterFilename(instructorID.String(), models.DateOf(req.AsOf.In(svc.Location())).String())
			}
			if err := wb.SaveAs(out); err != nil {
				return fmt.Errorf("save %s: %w", out, err)
			}
			cli.log.Base.Info("roster exported", zap.String("file", out), zap.Int("rows", len(entries)))
			fmt.Printf("✅ %d bookings written to %s\n", len(entries), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&instructor, "instructor", "", "instructor user id (uuid)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: generated name)")
	cmd.Flags().BoolVar(&withTraining, "with-training", false, "add the training checklist sheet")
	_ = cmd.MarkFlagRequired("instructor")
	return cmd
}

func postgresService() (*scheduling.Service, func(), error) {
	if cli.cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required for this command")
		return nil, nil, fmt.Errorf("DATABASE_URL is empty")
	}
	database, err := db.Open(cli.ctx, cli.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := db.NewStore(database, cli.log.Named("db"))
	svc := scheduling.NewService(store, cli.log.Named("scheduling"), scheduling.WithLocation(cli.cfg.Location))
	return svc, func() { _ = database.Close() }, nil
}
