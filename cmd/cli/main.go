package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magfest/ubersystem/cmd/cli/commands"
	"github.com/magfest/ubersystem/internal/config"
	"github.com/magfest/ubersystem/pkg/core/badges"
	"github.com/magfest/ubersystem/pkg/core/services"
	"github.com/magfest/ubersystem/pkg/core/volunteers"
	"github.com/magfest/ubersystem/pkg/postgres"
	"github.com/magfest/ubersystem/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "uber",
		Short: "Ubersystem CLI - Badge numbering and volunteer shifts",
		Long:  `A CLI tool for assigning badge numbers, keeping them dense, and scheduling volunteer shifts.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.DB != nil {
				app.DB.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs on the console")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.RegisterCmd(app))
	rootCmd.AddCommand(commands.ChangeBadgeCmd(app))
	rootCmd.AddCommand(commands.NextBadgeCmd(app))
	rootCmd.AddCommand(commands.ShiftBadgesCmd(app))
	rootCmd.AddCommand(commands.DeleteAttendeesCmd(app))
	rootCmd.AddCommand(commands.CheckBadgesCmd(app))
	rootCmd.AddCommand(commands.DefineJobsCmd(app))
	rootCmd.AddCommand(commands.AssignShiftCmd(app))
	rootCmd.AddCommand(commands.SignUpCmd(app))
	rootCmd.AddCommand(commands.UnassignCmd(app))
	rootCmd.AddCommand(commands.SetJobSlotsCmd(app))
	rootCmd.AddCommand(commands.CapableVolunteersCmd(app))
	rootCmd.AddCommand(commands.AvailableVolunteersCmd(app))
	rootCmd.AddCommand(commands.PossibleJobsCmd(app))
	rootCmd.AddCommand(commands.VolunteerHoursCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database and the numbering and eligibility cores
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, logging.Options{Verbose: verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.Int("badge_ranges", len(app.Cfg.BadgeRanges)),
		zap.Int("job_templates", len(app.Cfg.JobTemplates)))

	// Connect to database
	app.Logger.Info("Connecting to database")
	app.DB, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.Logger.Debug("Database connected successfully")

	lock := badges.NewBadgeLock(app.Cfg.BadgeLockTimeout, app.Logger)
	coordinator := badges.NewCoordinator(app.Cfg.BadgeSettings(), lock, app.Logger)
	app.Numbering = services.NewNumbering(app.DB, coordinator)
	app.Engine = volunteers.NewEngine()

	return nil
}
