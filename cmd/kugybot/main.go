package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/kugybot/internal/config"
	"github.com/sonroyaalmerol/kugybot/internal/handlers"
	"github.com/sonroyaalmerol/kugybot/internal/logging"
	"github.com/sonroyaalmerol/kugybot/internal/repository"
)

var version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "kugybot",
	Short:         "Discord bot with leveling, AI chat, radio and a YouTube queue",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return config.LoadDotenv(envFile)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		repo, err := repository.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer repo.Close()

		bot := handlers.NewBot(cmd.Context(), cfg, repo)
		return bot.Run(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		repo, err := repository.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer repo.Close()

		version, dirty, err := repo.SchemaVersion()
		if err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		slog.Info("migrations applied", "path", cfg.DBPath(), "version", version, "dirty", dirty)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Println(version)
	},
}

func setup() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, cfg.LogFormat, cfg.SlogLevel())
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(migrateCmd, versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
