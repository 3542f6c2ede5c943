// courtd serves the court API: filing, deliberation turns, and the judge's
// actions over a SQLite store.
//
// Usage:
//
//	courtd serve [--offline] [--dry-run] [--judge-id=<id>]
//	courtd migrate
//	courtd tools
//
// Settings come from the environment (see internal/config); a .env file in
// the working directory is loaded first when present.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-court-backend/internal/config"
	"github.com/tbourn/go-court-backend/internal/sysutil"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "courtd",
		Short:         "Courtroom judge backend",
		Long:          "courtd hosts courts and cases, runs the judge's deliberation loop on each\nmessage, and keeps each case's header message in step with its record.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newToolsCmd())
	return root
}

// loadConfig reads the environment and configures logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("courtd failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
