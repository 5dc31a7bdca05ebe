package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/billsforynab/bills/internal/config"
	"github.com/billsforynab/bills/internal/database"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/billsforynab/bills/internal/app.Version=...".
var Version = "dev"

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "bills",
	Short: "Bills for YNAB",
	Long:  "Keep a local copy of your YNAB budgets and manage their scheduled transactions as bills.",
	RunE:  runServe,

	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the local store and exit",
	RunE:  runMigrate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultPath, "Path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, migrateCmd, versionCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	// Open migrates to the latest version.
	db, err := database.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer db.Close()

	version, dirty, err := database.Version(db)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "store %s at schema version %d (dirty: %t)\n", cfg.Store.Path, version, dirty)
	return nil
}
