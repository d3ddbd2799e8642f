// Command catalogimport runs catalog imports and maintenance tasks from the
// command line.
//
// Usage:
//
//	catalogimport run --catalog c1 --file products.csv
//	catalogimport run --catalog c1 --file products.csv --dry-run --fixture seed.json
//	catalogimport mapping --file products.csv
//	catalogimport seed --file seed.json
//	catalogimport reset --yes
//
// Logs go to stderr; stdout carries command output only.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogcsv/internal/config"
	"github.com/JonMunkholm/catalogcsv/internal/logging"
)

func main() {
	// A missing .env file is fine; explicit env vars win over it
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "catalogimport",
		Short:         "Import products into a catalog from CSV or XLSX files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var logCfg config.LoggingConfig
			if err := config.LoadInto(&logCfg); err != nil {
				return err
			}
			logging.SetupWriter(cmd.ErrOrStderr(), logCfg.Level, logCfg.Format)
			return nil
		},
	}

	cmd.AddCommand(
		newRunCmd(),
		newMappingCmd(),
		newSeedCmd(),
		newResetCmd(),
	)
	return cmd
}
