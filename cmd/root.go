package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/facecrop/internal/app"
	"github.com/andresmejia3/facecrop/internal/config"
	"github.com/andresmejia3/facecrop/internal/store"
	"github.com/spf13/cobra"
)

var (
	// cfg is the environment snapshot shared by subcommands
	cfg *config.Config
	// logger is built from LOG_LEVEL and LOG_FORMAT
	logger *slog.Logger
	// DB is opened only by commands that touch the crop table
	DB *store.Store
	// dbURL overrides DB_ENDPOINT when set
	dbURL string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facecrop",
	Short:   "Face detection and cropping pipeline for object storage photos",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbURL != "" {
			cfg.DBEndpoint = dbURL
		}
		logger = cfg.Logger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			DB.Close()
		}
	},
}

// openDB connects the shared store using the command's context.
func openDB(ctx context.Context) error {
	var err error
	DB, err = app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	return nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: $DB_ENDPOINT)")
}
